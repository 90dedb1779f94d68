package knowledge

import (
	"context"
	"errors"

	"go.uber.org/zap"

	apperrors "allie-graph/pkg/errors"
)

// ============================================================================
// Family Data Import
// ============================================================================

// LoadFamilyData imports a family's source record into its knowledge graph:
// the family root entity, members with membership and parent/child
// relationships, tasks with assignment and authorship, and events with
// attendance and locations.
func (s *Service) LoadFamilyData(ctx context.Context, familyID string) (*Graph, error) {
	if _, err := s.InitializeGraph(ctx, familyID); err != nil {
		return nil, err
	}

	record, err := s.store.GetFamilyRecord(ctx, familyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.NewEntityNotFound(familyID)
		}
		return nil, apperrors.NewStoreOperationFailed("read", familyID, err)
	}

	familyName := record.FamilyName
	if familyName == "" {
		familyName = "Family"
	}
	familyProps := map[string]interface{}{
		"name": familyName,
	}
	if record.CurrentWeek != 0 {
		familyProps["currentWeek"] = record.CurrentWeek
	}
	if record.CompletedWeeks != nil {
		familyProps["completedWeeks"] = record.CompletedWeeks
	}
	if record.FormationDate != "" {
		familyProps["formationDate"] = record.FormationDate
	}
	if record.Address != nil {
		familyProps["address"] = record.Address
	}
	if record.Settings != nil {
		familyProps["settings"] = record.Settings
	}
	if record.CulturalContext != "" {
		familyProps["culturalContext"] = record.CulturalContext
	}
	if _, err := s.AddEntity(ctx, familyID, "family", familyProps, familyID, nil); err != nil {
		return nil, err
	}

	if err := s.loadMembers(ctx, familyID, record); err != nil {
		return nil, err
	}
	if err := s.loadTasks(ctx, familyID, record); err != nil {
		return nil, err
	}
	if err := s.loadEvents(ctx, familyID, record); err != nil {
		return nil, err
	}

	s.logger.Info("Family data loaded",
		zap.String("family_id", familyID),
		zap.Int("members", len(record.FamilyMembers)),
		zap.Int("tasks", len(record.Tasks)),
		zap.Int("events", len(record.Events)),
	)
	return s.GetGraph(ctx, familyID, false)
}

func (s *Service) loadMembers(ctx context.Context, familyID string, record *FamilyRecord) error {
	for _, member := range record.FamilyMembers {
		props := map[string]interface{}{
			"name": member.Name,
		}
		if member.Role != "" {
			props["role"] = member.Role
		}
		if member.Age != 0 {
			props["age"] = member.Age
		}
		if member.BirthDate != "" {
			props["birthdate"] = member.BirthDate
		}
		if member.Gender != "" {
			props["gender"] = member.Gender
		}
		if member.ProfilePicture != "" {
			props["avatar"] = member.ProfilePicture
		}
		if member.Interests != nil {
			props["interests"] = member.Interests
		}
		if member.Preferences != nil {
			props["preferences"] = member.Preferences
		}
		if _, err := s.AddEntity(ctx, familyID, "person", props, member.ID, nil); err != nil {
			return err
		}

		since := member.JoinDate
		if since == "" {
			since = nowISO()
		}
		if _, err := s.AddRelationship(ctx, familyID, member.ID, familyID, "member_of", map[string]interface{}{
			"role":    member.Role,
			"since":   since,
			"primary": true,
		}, nil); err != nil {
			return err
		}
	}

	// Parent/child relationships need all members present first
	for _, member := range record.FamilyMembers {
		if member.Role != "parent" {
			continue
		}
		parentType := member.Relationship
		if parentType == "" {
			parentType = "biological"
		}
		for _, child := range record.FamilyMembers {
			if child.Role != "child" {
				continue
			}
			if _, err := s.AddRelationship(ctx, familyID, member.ID, child.ID, "parent_of", map[string]interface{}{
				"type":              parentType,
				"primary_caregiver": member.PrimaryCaregiver,
			}, nil); err != nil {
				return err
			}
			childType := parentType
			if childType == "adoptive" {
				childType = "adopted"
			} else if childType == "guardian" {
				childType = "step"
			}
			if _, err := s.AddRelationship(ctx, familyID, child.ID, member.ID, "child_of", map[string]interface{}{
				"type": childType,
			}, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) loadTasks(ctx context.Context, familyID string, record *FamilyRecord) error {
	for _, task := range record.Tasks {
		status := "pending"
		if task.Completed {
			status = "completed"
		}
		weight := task.Weight
		if weight == 0 {
			weight = 1
		}
		props := map[string]interface{}{
			"title":  task.Title,
			"status": status,
			"weight": weight,
		}
		if task.Description != "" {
			props["description"] = task.Description
		}
		if task.DueDate != "" {
			props["dueDate"] = task.DueDate
		}
		if task.Category != "" {
			props["taskType"] = task.Category
		}
		if task.Priority != 0 {
			props["priority"] = task.Priority
		}
		if task.EstimatedTime != 0 {
			props["estimatedTime"] = task.EstimatedTime
		}
		if _, err := s.AddEntity(ctx, familyID, "task", props, task.ID, nil); err != nil {
			return err
		}

		if task.AssignedTo != "" {
			assignedDate := task.AssignedDate
			if assignedDate == "" {
				assignedDate = task.CreatedAt
			}
			relProps := map[string]interface{}{
				"voluntary": task.Voluntary,
				"weight":    weight,
			}
			if assignedDate != "" {
				relProps["assignedDate"] = assignedDate
			}
			if _, err := s.AddRelationship(ctx, familyID, task.ID, task.AssignedTo, "assigned_to", relProps, nil); err != nil {
				return err
			}
		}

		if task.CreatedBy != "" {
			relProps := map[string]interface{}{}
			if task.CreatedAt != "" {
				relProps["date"] = task.CreatedAt
			}
			if _, err := s.AddRelationship(ctx, familyID, task.ID, task.CreatedBy, "created_by", relProps, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) loadEvents(ctx context.Context, familyID string, record *FamilyRecord) error {
	for _, event := range record.Events {
		eventType := event.Type
		if eventType == "" {
			eventType = "family"
		}
		status := event.Status
		if status == "" {
			status = "confirmed"
		}
		props := map[string]interface{}{
			"title":     event.Title,
			"startDate": event.StartDate,
			"eventType": eventType,
			"status":    status,
		}
		if event.Description != "" {
			props["description"] = event.Description
		}
		if event.EndDate != "" {
			props["endDate"] = event.EndDate
		}
		if event.Calendar != "" {
			props["calendar"] = event.Calendar
		}
		if event.Recurrence != nil {
			props["recurrence"] = event.Recurrence
		}
		if _, err := s.AddEntity(ctx, familyID, "event", props, event.ID, nil); err != nil {
			return err
		}

		for _, attendee := range event.Attendees {
			if _, err := s.AddRelationship(ctx, familyID, attendee.ID, event.ID, "attends", map[string]interface{}{
				"role":      attendee.Role,
				"required":  attendee.Required,
				"confirmed": attendee.Confirmed,
			}, nil); err != nil {
				return err
			}
		}

		if event.Location != nil && event.Location.ID != "" {
			locProps := map[string]interface{}{
				"name": event.Location.Name,
			}
			if event.Location.Address != nil {
				locProps["address"] = event.Location.Address
			}
			if event.Location.Coordinates != nil {
				locProps["coordinates"] = event.Location.Coordinates
			}
			if event.Location.Type != "" {
				locProps["type"] = event.Location.Type
			}
			if _, err := s.AddEntity(ctx, familyID, "location", locProps, event.Location.ID, nil); err != nil {
				return err
			}
			if _, err := s.AddRelationship(ctx, familyID, event.ID, event.Location.ID, "occurs_at", map[string]interface{}{
				"confirmed": true,
			}, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
