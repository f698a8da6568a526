package extractor

import (
	"encoding/json"

	"github.com/BishopFox/jsluice"
	"github.com/rs/zerolog"

	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
)

// Endpoint is one URL discovered inside a page script.
type Endpoint struct {
	URL          string `json:"url"`
	Method       string `json:"method,omitempty"`
	Type         string `json:"type,omitempty"`
	SourceScript string `json:"source_script,omitempty"`
}

// ScriptReport is the scripts.json payload of a bundle: the scripts and
// network requests the agent observed, plus the endpoints mined from the
// available script sources.
type ScriptReport struct {
	Scripts   []models.ScriptRef      `json:"scripts"`
	Network   []models.NetworkRequest `json:"network"`
	Endpoints []Endpoint              `json:"endpoints,omitempty"`
}

// ScriptDataAnalyzer builds the script-and-network-data report for a capture.
type ScriptDataAnalyzer struct {
	logger             zerolog.Logger
	maxNetworkRequests int
}

// NewScriptDataAnalyzer creates an analyzer. maxNetworkRequests bounds the
// network request list; zero or less means unbounded.
func NewScriptDataAnalyzer(maxNetworkRequests int, logger zerolog.Logger) *ScriptDataAnalyzer {
	return &ScriptDataAnalyzer{
		logger:             logger.With().Str("component", "ScriptDataAnalyzer").Logger(),
		maxNetworkRequests: maxNetworkRequests,
	}
}

// BuildReport assembles the report from collected page content. Script
// sources that are present (inline, or fetched by the orchestrator's cached
// fetcher) are run through jsluice for endpoint discovery; analysis findings
// are best-effort and an unparseable script contributes no endpoints.
func (a *ScriptDataAnalyzer) BuildReport(content models.PageContent) ([]byte, error) {
	network := content.Network
	if a.maxNetworkRequests > 0 && len(network) > a.maxNetworkRequests {
		network = network[:a.maxNetworkRequests]
	}

	report := ScriptReport{
		Scripts:   content.Scripts,
		Network:   network,
		Endpoints: a.mineEndpoints(content.Scripts),
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, common.WrapError(err, "failed to marshal script report")
	}
	return payload, nil
}

func (a *ScriptDataAnalyzer) mineEndpoints(scripts []models.ScriptRef) []Endpoint {
	var endpoints []Endpoint
	seen := make(map[string]struct{})

	for _, script := range scripts {
		if script.Source == "" {
			continue
		}

		analyzer := jsluice.NewAnalyzer([]byte(script.Source))
		for _, found := range analyzer.GetURLs() {
			if found.URL == "" {
				continue
			}
			if _, dup := seen[found.URL]; dup {
				continue
			}
			seen[found.URL] = struct{}{}
			endpoints = append(endpoints, Endpoint{
				URL:          found.URL,
				Method:       found.Method,
				Type:         found.Type,
				SourceScript: script.URL,
			})
		}
	}

	a.logger.Debug().
		Int("script_count", len(scripts)).
		Int("endpoint_count", len(endpoints)).
		Msg("Script endpoint mining completed")
	return endpoints
}
