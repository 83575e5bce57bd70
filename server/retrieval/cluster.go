package retrieval

import (
	"strings"

	"github.com/rackguard/rackguard/store"
)

// Cluster group names, in assignment priority order. A result lands in the
// first group whose test it passes.
const (
	ClusterTables         = "tables"
	ClusterFigures        = "figures"
	ClusterRequirements   = "requirements"
	ClusterSpecifications = "specifications"
	ClusterProcedures     = "procedures"
	ClusterGeneral        = "general"
)

var clusterOrder = []string{
	ClusterTables,
	ClusterFigures,
	ClusterRequirements,
	ClusterSpecifications,
	ClusterProcedures,
	ClusterGeneral,
}

var clusterContentTerms = map[string][]string{
	ClusterRequirements:   {"shall", "must", "requirement"},
	ClusterSpecifications: {"specification", "parameter", "dimension"},
	ClusterProcedures:     {"procedure", "step", "process"},
}

// ClusterResults groups results by content kind so callers can present
// tables, figures, and mandatory language separately. Groups with no
// members are omitted.
func ClusterResults(results []*EnhancedResult) map[string][]*EnhancedResult {
	clusters := make(map[string][]*EnhancedResult)
	for _, result := range results {
		name := clusterFor(result.Result)
		clusters[name] = append(clusters[name], result)
	}
	return clusters
}

func clusterFor(result *store.SearchResult) string {
	if result.TableNumber != "" || result.SourceType == "table" {
		return ClusterTables
	}
	if result.FigureNumber != "" || result.SourceType == "figure" {
		return ClusterFigures
	}
	content := strings.ToLower(result.Content)
	for _, name := range clusterOrder[2:5] {
		for _, term := range clusterContentTerms[name] {
			if strings.Contains(content, term) {
				return name
			}
		}
	}
	return ClusterGeneral
}
