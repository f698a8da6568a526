package archive

import "github.com/webcapsule/webcapsule/internal/models"

// bundleFilenames maps every capture kind to its filename inside a bundle.
var bundleFilenames = map[models.CaptureKind]string{
	models.KindMetadata:          "metadata.json",
	models.KindScreenshotVisible: "screenshot.png",
	models.KindScreenshotFull:    "screenshot-full.png",
	models.KindMHTML:             "page.mhtml",
	models.KindHTML:              "page.html",
	models.KindText:              "page.txt",
	models.KindMarkdown:          "page.md",
	models.KindReadable:          "readable.html",
	models.KindScriptData:        "scripts.json",
}

// FilenameForKind returns the bundle filename for a capture kind.
func FilenameForKind(kind models.CaptureKind) string {
	return bundleFilenames[kind]
}
