package influence

import (
	"sort"
	"strings"

	"github.com/OFFIS-RIT/pulse/pkg/common"
	"github.com/OFFIS-RIT/pulse/pkg/graph"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
	"github.com/OFFIS-RIT/pulse/pkg/timeline"
)

// Role classifies a participant by influence and activity.
type Role string

const (
	RoleActiveLeader    Role = "Active Leader"
	RoleStrategicLeader Role = "Strategic Leader"
	RoleExecutor        Role = "Executor"
	RoleContributor     Role = "Contributor"
)

// IsLeader reports whether the role is one of the leader roles.
func (r Role) IsLeader() bool {
	return strings.Contains(string(r), "Leader")
}

// roleRules is the role matrix:
//
//	                 low activity       high activity
//	high influence   Strategic Leader   Active Leader
//	low influence    Contributor        Executor
var roleRules = []struct {
	highInfluence bool
	highActivity  bool
	role          Role
}{
	{true, true, RoleActiveLeader},
	{true, false, RoleStrategicLeader},
	{false, true, RoleExecutor},
	{false, false, RoleContributor},
}

const (
	DefaultInfluenceThreshold = 0.03
	DefaultActivityThreshold  = 10
)

// Score is the influence record of one participant.
type Score struct {
	Rank                  int     `json:"rank"`
	Participant           string  `json:"participant"`
	InfluenceScore        float64 `json:"influence_score"`
	PageRank              float64 `json:"pagerank"`
	DegreeCentrality      float64 `json:"degree_centrality"`
	BetweennessCentrality float64 `json:"betweenness_centrality"`
	EventCount            int     `json:"event_count"`
	EmailCount            int     `json:"email_count"`
	MeetingCount          int     `json:"meeting_count"`
	Role                  Role    `json:"role"`
	Organization          string  `json:"organization"`
}

// Mapper computes influence scores and roles.
type Mapper struct {
	influenceThreshold float64
	activityThreshold  int
}

// NewMapperParams configures a Mapper. Zero values select the defaults
// (0.03 PageRank, 10 events).
type NewMapperParams struct {
	InfluenceThreshold float64
	ActivityThreshold  int
}

// NewMapper creates a Mapper.
func NewMapper(params NewMapperParams) *Mapper {
	m := &Mapper{
		influenceThreshold: params.InfluenceThreshold,
		activityThreshold:  params.ActivityThreshold,
	}
	if m.influenceThreshold <= 0 {
		m.influenceThreshold = DefaultInfluenceThreshold
	}
	if m.activityThreshold <= 0 {
		m.activityThreshold = DefaultActivityThreshold
	}
	return m
}

// Classify maps an influence score and an event count onto a role. Both
// thresholds are inclusive.
func (m *Mapper) Classify(influence float64, activity int) Role {
	high := influence >= m.influenceThreshold
	active := activity >= m.activityThreshold
	for _, rule := range roleRules {
		if rule.highInfluence == high && rule.highActivity == active {
			return rule.role
		}
	}
	return RoleContributor
}

// Calculate scores every person in g. Influence is weighted PageRank over
// the person graph in which two persons are linked by the number of events
// they share. Activity counts come from the timeline. The result is sorted
// by influence (ties by participant) and ranked from 1.
func (m *Mapper) Calculate(g *graph.Graph, tl *timeline.Timeline) []Score {
	if g == nil || g.NodeCount() == 0 {
		logger.Warn("[Influence] Empty graph provided")
		return nil
	}

	pg := buildPersonGraph(g)
	if pg.len() == 0 {
		logger.Warn("[Influence] No person nodes found in graph")
		return nil
	}
	logger.Debug("[Influence] Created person graph", "nodes", pg.len(), "edges", pg.edgeCount())

	pagerank, converged := pg.pageRank()
	if !converged {
		logger.Warn("[Influence] PageRank did not converge", "iterations", pageRankMaxIter)
	}
	degree := pg.degreeCentrality()
	betweenness := pg.betweennessCentrality()

	var activity map[string]timeline.Activity
	if tl != nil {
		activity = tl.Activity()
	}

	scores := make([]Score, 0, pg.len())
	for i, id := range pg.ids {
		node, _ := g.Node(id)
		act := activity[node.Key]
		scores = append(scores, Score{
			Participant:           node.Key,
			InfluenceScore:        common.Round(pagerank[i], 4),
			PageRank:              common.Round(pagerank[i], 4),
			DegreeCentrality:      common.Round(degree[i], 4),
			BetweennessCentrality: common.Round(betweenness[i], 4),
			EventCount:            act.Total,
			EmailCount:            act.Emails,
			MeetingCount:          act.Meetings,
			Role:                  m.Classify(pagerank[i], act.Total),
			Organization:          common.Organization(node.Key),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].InfluenceScore != scores[j].InfluenceScore {
			return scores[i].InfluenceScore > scores[j].InfluenceScore
		}
		return scores[i].Participant < scores[j].Participant
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}

	logger.Info("[Influence] Calculated influence scores", "participants", len(scores), "roles", RoleCounts(scores))
	return scores
}

// RoleCounts counts participants per role.
func RoleCounts(scores []Score) map[Role]int {
	counts := make(map[Role]int)
	for _, s := range scores {
		counts[s.Role]++
	}
	return counts
}

// KeyConnectors returns the n participants with the highest betweenness
// centrality. Ties keep the influence order.
func KeyConnectors(scores []Score, n int) []string {
	if n <= 0 || len(scores) == 0 {
		return nil
	}
	sorted := make([]Score, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BetweennessCentrality > sorted[j].BetweennessCentrality
	})
	n = min(n, len(sorted))
	out := make([]string, n)
	for i := range out {
		out[i] = sorted[i].Participant
	}
	return out
}

// TeamLeaders groups leader-role participants by organization. Every
// organization present in scores has an entry, possibly empty.
func TeamLeaders(scores []Score) map[string][]string {
	leaders := make(map[string][]string)
	for _, s := range scores {
		if _, ok := leaders[s.Organization]; !ok {
			leaders[s.Organization] = []string{}
		}
		if s.Role.IsLeader() {
			leaders[s.Organization] = append(leaders[s.Organization], s.Participant)
		}
	}
	return leaders
}

// Leaders returns the set of participants holding a leader role.
func Leaders(scores []Score) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range scores {
		if s.Role.IsLeader() {
			out[s.Participant] = struct{}{}
		}
	}
	return out
}
