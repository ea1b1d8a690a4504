package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUserNotFound is returned when no profile document exists for the
// requested user ID.
var ErrUserNotFound = errors.New("no user found")

// ProfileStore is the document-store lookup the user-profile tool depends
// on. FindProfile reports found=false for an unknown user without error;
// errors are reserved for store connectivity failures.
type ProfileStore interface {
	FindProfile(ctx context.Context, userID string) (doc map[string]any, found bool, err error)
	SampleUserIDs(ctx context.Context, limit int) ([]string, error)
}

// UserProfile retrieves complete financial and personal information for a
// user from the profile collection.
type UserProfile struct {
	profiles ProfileStore
}

// NewUserProfile creates the user-profile lookup tool.
func NewUserProfile(profiles ProfileStore) *UserProfile {
	return &UserProfile{profiles: profiles}
}

// Definition implements Tool.
func (u *UserProfile) Definition() Definition {
	return Definition{
		Name: "get_user_information",
		Description: "Retrieve complete financial and personal information for a " +
			"specific user from the financial database. Returns all user data " +
			"including demographics, financial status, investment details, " +
			"transaction history, and risk profile.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{
					"type":        "string",
					"description": "The unique User ID to search for (e.g., 'U1000', 'U1001', etc.)",
				},
			},
			"required": []string{"user_id"},
		},
	}
}

// Execute implements Tool.
func (u *UserProfile) Execute(ctx context.Context, input map[string]any) (any, error) {
	userID, _ := input["user_id"].(string)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("no user_id provided")
	}

	doc, found, err := u.profiles.FindProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}

	if !found {
		samples, sampleErr := u.profiles.SampleUserIDs(ctx, 5)
		result := map[string]any{
			"user_id": userID,
		}
		if sampleErr == nil && len(samples) > 0 {
			result["suggestion"] = fmt.Sprintf(
				"User ID not found. Try one of these sample IDs: %s",
				strings.Join(samples, ", "))
		}
		return result, fmt.Errorf("%w with ID: %s", ErrUserNotFound, userID)
	}

	return map[string]any{
		"user_id":   userID,
		"user_data": doc,
		"message":   fmt.Sprintf("Complete user information retrieved for User ID: %s", userID),
	}, nil
}
