package graph

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/common"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
)

// DefaultTemporalWindowHours is the largest start-time gap for which two
// events can be linked by a temporal proximity edge.
const DefaultTemporalWindowHours = 48.0

// BuildParams defines the input of Build.
//
// TemporalWindowHours bounds temporal proximity edges; zero or negative
// values fall back to DefaultTemporalWindowHours.
type BuildParams struct {
	Emails              []common.EmailThread
	Meetings            []common.Meeting
	TemporalWindowHours float64
}

// Build constructs the collaboration graph:
//
//   - a person node for every identity containing "@" (others are dropped)
//   - one node per email thread and meeting
//   - membership edges person -> event (participated, organized, attended)
//   - temporal proximity edges between events whose starts are within the
//     window and whose participant sets intersect
//   - collaborated edges person -> person weighted by the number of shared
//     events
//
// Example:
//
//	g := graph.Build(graph.BuildParams{
//		Emails:   threads,
//		Meetings: meetings,
//	})
//	fmt.Println(g.Stats().Density)
func Build(params BuildParams) *Graph {
	window := params.TemporalWindowHours
	if window <= 0 {
		window = DefaultTemporalWindowHours
	}

	g := New()
	addPersons(g, params.Emails, params.Meetings)
	addEmails(g, params.Emails)
	addMeetings(g, params.Meetings)
	temporal := addTemporalLinks(g, params.Emails, params.Meetings, window)
	addCollaborationLinks(g)

	logger.Info(
		"[Graph] Built collaboration graph",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"temporal_edges", temporal,
	)
	return g
}

func addPersons(g *Graph, emails []common.EmailThread, meetings []common.Meeting) {
	add := func(identity string) {
		p, ok := common.NewPerson(identity)
		if !ok {
			return
		}
		g.AddNode(Node{Key: p.Email, Kind: NodeKindPerson, Organization: p.Organization})
	}
	for _, e := range emails {
		for _, p := range e.Participants {
			add(p)
		}
	}
	for _, m := range meetings {
		if m.Organizer != "" {
			add(m.Organizer)
		}
		for _, a := range m.Attendees {
			add(a)
		}
	}
}

func (g *Graph) person(identity string) (NodeID, bool) {
	id, ok := g.index[identity]
	if !ok || g.nodes[id].Kind != NodeKindPerson {
		return 0, false
	}
	return id, true
}

func addEmails(g *Graph, emails []common.EmailThread) {
	for _, e := range emails {
		id := g.AddNode(Node{
			Key:              e.ID,
			Kind:             NodeKindEmail,
			Subject:          e.Subject,
			Start:            e.FirstDate,
			End:              e.LastDate,
			ParticipantCount: len(e.Participants),
			EmailCount:       e.EmailCount,
			DurationSeconds:  e.LastDate.Sub(e.FirstDate).Seconds(),
		})
		for _, p := range e.Participants {
			if pid, ok := g.person(p); ok {
				g.addEdge(Edge{From: pid, To: id, Relation: RelationParticipated, Timestamp: e.FirstDate})
			}
		}
	}
}

func addMeetings(g *Graph, meetings []common.Meeting) {
	for _, m := range meetings {
		id := g.AddNode(Node{
			Key:              m.UID,
			Kind:             NodeKindMeeting,
			Subject:          m.Summary,
			Start:            m.Start,
			End:              m.End,
			ParticipantCount: len(m.Attendees),
			DurationSeconds:  m.End.Sub(m.Start).Seconds(),
		})
		if pid, ok := g.person(m.Organizer); ok {
			g.addEdge(Edge{From: pid, To: id, Relation: RelationOrganized, Timestamp: m.Start})
		}
		for _, a := range m.Attendees {
			if pid, ok := g.person(a); ok {
				g.addEdge(Edge{From: pid, To: id, Relation: RelationAttended, Timestamp: m.Start})
			}
		}
	}
}

type timedEvent struct {
	id           NodeID
	start        time.Time
	participants map[string]struct{}
}

func newTimedEvent(g *Graph, key string, start time.Time, participants []string) timedEvent {
	set := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		set[p] = struct{}{}
	}
	return timedEvent{id: g.index[key], start: start, participants: set}
}

// addTemporalLinks scans events sorted by start time. The inner loop stops
// as soon as the gap exceeds the window, so the scan is linear in the number
// of events that are actually close together.
func addTemporalLinks(g *Graph, emails []common.EmailThread, meetings []common.Meeting, windowHours float64) int {
	events := make([]timedEvent, 0, len(emails)+len(meetings))
	for _, e := range emails {
		events = append(events, newTimedEvent(g, e.ID, e.FirstDate, e.Participants))
	}
	for _, m := range meetings {
		events = append(events, newTimedEvent(g, m.UID, m.Start, m.Attendees))
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].start.Before(events[j].start)
	})

	count := 0
	for i, first := range events {
		for _, second := range events[i+1:] {
			diff := second.start.Sub(first.start).Hours()
			if diff > windowHours {
				break
			}
			if first.id == second.id {
				continue
			}
			shared := sharedCount(first.participants, second.participants)
			if shared == 0 {
				continue
			}
			g.addEdge(Edge{
				From:               first.id,
				To:                 second.id,
				Relation:           RelationTemporalProximity,
				TimeDiffHours:      diff,
				SharedParticipants: shared,
				Confidence:         math.Min(1, float64(shared)/3),
			})
			count++
		}
	}
	return count
}

func sharedCount(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for p := range a {
		if _, ok := b[p]; ok {
			n++
		}
	}
	return n
}

func addCollaborationLinks(g *Graph) {
	for _, person := range g.Nodes(NodeKindPerson) {
		counts := make(map[NodeID]int)
		for _, event := range g.Successors(person.ID) {
			if !g.nodes[event].Kind.IsEvent() {
				continue
			}
			for _, other := range g.Members(event) {
				if other != person.ID {
					counts[other]++
				}
			}
		}

		collaborators := make([]NodeID, 0, len(counts))
		for id := range counts {
			collaborators = append(collaborators, id)
		}
		slices.Sort(collaborators)
		for _, other := range collaborators {
			g.addEdge(Edge{
				From:     person.ID,
				To:       other,
				Relation: RelationCollaborated,
				Weight:   counts[other],
			})
		}
	}
}
