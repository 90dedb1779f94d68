package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================================
// Insight Generation
// ============================================================================

// Insight is a generated observation about a family, persisted back into the
// graph as an insight entity linked to the entities it concerns.
type Insight struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Type           string   `json:"type"`
	Severity       string   `json:"severity"`
	Entities       []string `json:"entities,omitempty"`
	Sources        []string `json:"sources,omitempty"`
	Confidence     float64  `json:"confidence"`
	Actionable     bool     `json:"actionable"`
	ExpirationDate string   `json:"expirationDate,omitempty"`
	ActionItems    []string `json:"actionItems,omitempty"`
}

// GenerateInsights analyzes a family's graph, persists each insight as an
// insight entity with relevant_to and derived_from relationships, and
// returns them.
func (s *Service) GenerateInsights(ctx context.Context, familyID string) ([]*Insight, error) {
	var insights []*Insight

	workload, err := s.taskWorkloadInsight(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if workload != nil {
		insights = append(insights, workload)
	}

	conflicts, err := s.scheduleConflictInsights(ctx, familyID)
	if err != nil {
		return nil, err
	}
	insights = append(insights, conflicts...)

	milestones, err := s.milestoneGapInsights(ctx, familyID)
	if err != nil {
		return nil, err
	}
	insights = append(insights, milestones...)

	for _, insight := range insights {
		if err := s.persistInsight(ctx, familyID, insight); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Insights generated",
		zap.String("family_id", familyID),
		zap.Int("count", len(insights)),
	)
	return insights, nil
}

func (s *Service) persistInsight(ctx context.Context, familyID string, insight *Insight) error {
	insightID := "insight-" + uuid.New().String()

	props := map[string]interface{}{
		"title":             insight.Title,
		"description":       insight.Description,
		"type":              insight.Type,
		"severity":          severityLevel(insight.Severity),
		"generatedDate":     nowISO(),
		"actionable":        insight.Actionable,
		"suggested_actions": insight.ActionItems,
		"confidence":        insight.Confidence,
	}
	if insight.ExpirationDate != "" {
		props["expirationDate"] = insight.ExpirationDate
	}
	if _, err := s.AddEntity(ctx, familyID, "insight", props, insightID, nil); err != nil {
		return err
	}

	// relevant_to only targets people and families, derived_from only data
	// entities, so linked IDs are routed by entity type.
	linked := make(map[string]bool)
	link := func(entityID string) error {
		if linked[entityID] {
			return nil
		}
		linked[entityID] = true

		switch s.entityType(familyID, entityID) {
		case "person", "family":
			_, err := s.AddRelationship(ctx, familyID, insightID, entityID, "relevant_to", map[string]interface{}{
				"importance": severityLevel(insight.Severity),
				"actionable": insight.Actionable,
			}, nil)
			return err
		case "document", "event", "task", "communication", "metric":
			_, err := s.AddRelationship(ctx, familyID, insightID, entityID, "derived_from", map[string]interface{}{
				"contribution": 1.0,
				"confidence":   insight.Confidence,
			}, nil)
			return err
		}
		return nil
	}

	for _, entityID := range insight.Entities {
		if err := link(entityID); err != nil {
			return err
		}
	}
	for _, sourceID := range insight.Sources {
		if err := link(sourceID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) entityType(familyID, entityID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	graph, ok := s.cache[familyID]
	if !ok {
		return ""
	}
	entity := graph.Entities[entityID]
	if entity == nil {
		return ""
	}
	return entity.Type
}

// severityLevel maps severity names to the numeric scale stored on insight
// entities.
func severityLevel(severity string) float64 {
	switch severity {
	case "high":
		return 3
	case "medium":
		return 2
	default:
		return 1
	}
}

// taskWorkloadInsight flags a workload imbalance between the two most loaded
// parents or guardians when the gap exceeds 20% and the heavier load carries
// a total task weight above 5.
func (s *Service) taskWorkloadInsight(ctx context.Context, familyID string) (*Insight, error) {
	people, err := s.QueryEntitiesByType(ctx, familyID, "person", nil, 0)
	if err != nil {
		return nil, err
	}
	assignments, err := s.FindRelationshipsByType(ctx, familyID, "assigned_to")
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 || len(people) < 2 {
		return nil, nil
	}

	type load struct {
		entityID    string
		name        string
		role        string
		assigned    int
		totalWeight float64
	}
	loads := make(map[string]*load, len(people))
	for _, person := range people {
		name, _ := person.Properties["name"].(string)
		role, _ := person.Properties["role"].(string)
		loads[person.ID] = &load{entityID: person.ID, name: name, role: role}
	}

	for _, assignment := range assignments {
		if assignment.Target == nil {
			continue
		}
		entry, ok := loads[assignment.Target.ID]
		if !ok {
			continue
		}
		weight := 1.0
		if w, ok := toFloat(assignment.Relationship.Properties["weight"]); ok && w > 0 {
			weight = w
		}
		entry.assigned++
		entry.totalWeight += weight
	}

	var adults []*load
	for _, entry := range loads {
		if entry.role == "parent" || entry.role == "guardian" {
			adults = append(adults, entry)
		}
	}
	if len(adults) < 2 {
		return nil, nil
	}

	sort.Slice(adults, func(i, j int) bool {
		return adults[i].totalWeight > adults[j].totalWeight
	})
	heaviest, second := adults[0], adults[1]
	if heaviest.totalWeight == 0 {
		return nil, nil
	}
	imbalance := (heaviest.totalWeight - second.totalWeight) / heaviest.totalWeight * 100
	if imbalance <= 20 || heaviest.totalWeight <= 5 {
		return nil, nil
	}

	severity := "medium"
	if imbalance > 40 {
		severity = "high"
	}

	entityIDs := make([]string, 0, len(adults))
	for _, adult := range adults {
		entityIDs = append(entityIDs, adult.entityID)
	}
	sourceIDs := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		sourceIDs = append(sourceIDs, assignment.Relationship.SourceID)
	}

	return &Insight{
		Title:          "Task Workload Imbalance",
		Description:    fmt.Sprintf("%s has %d%% more task workload than %s.", heaviest.name, int(math.Round(imbalance)), second.name),
		Type:           "workload_imbalance",
		Severity:       severity,
		Entities:       entityIDs,
		Sources:        sourceIDs,
		Confidence:     0.85,
		Actionable:     true,
		ExpirationDate: time.Now().UTC().Add(7 * 24 * time.Hour).Format(time.RFC3339),
		ActionItems: []string{
			fmt.Sprintf("Redistribute some tasks from %s to %s", heaviest.name, second.name),
			"Consider automating or eliminating some recurring tasks",
			"Discuss workload balance in next family meeting",
		},
	}, nil
}

// scheduleConflictInsights finds pairs of events with overlapping times that
// the same person attends.
func (s *Service) scheduleConflictInsights(ctx context.Context, familyID string) ([]*Insight, error) {
	attendance, err := s.FindRelationshipsByType(ctx, familyID, "attends")
	if err != nil {
		return nil, err
	}
	if len(attendance) == 0 {
		return nil, nil
	}

	type window struct {
		event *Entity
		start time.Time
		end   time.Time
	}
	byPerson := make(map[string][]window)
	names := make(map[string]string)

	for _, att := range attendance {
		if att.Source == nil || att.Target == nil {
			continue
		}
		start, ok := parseTime(att.Target.Properties["startDate"])
		if !ok {
			continue
		}
		end, ok := parseTime(att.Target.Properties["endDate"])
		if !ok {
			end = start.Add(time.Hour)
		}
		byPerson[att.Source.ID] = append(byPerson[att.Source.ID], window{event: att.Target, start: start, end: end})
		if name, ok := att.Source.Properties["name"].(string); ok {
			names[att.Source.ID] = name
		}
	}

	var insights []*Insight
	personIDs := make([]string, 0, len(byPerson))
	for personID := range byPerson {
		personIDs = append(personIDs, personID)
	}
	sort.Strings(personIDs)

	for _, personID := range personIDs {
		windows := byPerson[personID]
		sort.Slice(windows, func(i, j int) bool { return windows[i].start.Before(windows[j].start) })

		for i := 0; i < len(windows); i++ {
			for j := i + 1; j < len(windows); j++ {
				a, b := windows[i], windows[j]
				if !b.start.Before(a.end) {
					break
				}
				titleA, _ := a.event.Properties["title"].(string)
				titleB, _ := b.event.Properties["title"].(string)
				name := names[personID]
				if name == "" {
					name = personID
				}
				insights = append(insights, &Insight{
					Title:       "Schedule Conflict",
					Description: fmt.Sprintf("%s is expected at both %q and %q at the same time.", name, titleA, titleB),
					Type:        "schedule_conflict",
					Severity:    "medium",
					Entities:    []string{personID, a.event.ID, b.event.ID},
					Sources:     []string{a.event.ID, b.event.ID},
					Confidence:  0.9,
					Actionable:  true,
					ActionItems: []string{
						fmt.Sprintf("Reschedule %q or %q", titleA, titleB),
						fmt.Sprintf("Confirm which event %s will attend", name),
					},
				})
			}
		}
	}
	return insights, nil
}

// milestoneGapInsights flags children with no milestone recorded in the last
// 90 days.
func (s *Service) milestoneGapInsights(ctx context.Context, familyID string) ([]*Insight, error) {
	children, err := s.QueryEntitiesByType(ctx, familyID, "person", map[string]interface{}{"role": "child"}, 0)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, nil
	}
	milestones, err := s.QueryEntitiesByType(ctx, familyID, "milestone", nil, 0)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]time.Time)
	for _, milestone := range milestones {
		date, ok := parseTime(milestone.Properties["date"])
		if !ok {
			continue
		}
		associated, _ := milestone.Properties["associatedEntities"].([]interface{})
		for _, raw := range associated {
			childID, ok := raw.(string)
			if !ok {
				continue
			}
			if date.After(latest[childID]) {
				latest[childID] = date
			}
		}
	}

	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)
	var insights []*Insight
	for _, child := range children {
		if last, ok := latest[child.ID]; ok && last.After(cutoff) {
			continue
		}
		name, _ := child.Properties["name"].(string)
		if name == "" {
			name = child.ID
		}
		insights = append(insights, &Insight{
			Title:       "Milestone Check-In",
			Description: fmt.Sprintf("No milestone has been recorded for %s in the last 90 days.", name),
			Type:        "milestone_gap",
			Severity:    "low",
			Entities:    []string{child.ID},
			Confidence:  0.7,
			Actionable:  true,
			ActionItems: []string{
				fmt.Sprintf("Record a recent achievement or development for %s", name),
			},
		})
	}
	return insights, nil
}

// parseTime parses a property value as an RFC3339 timestamp or plain date.
func parseTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
