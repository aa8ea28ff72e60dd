package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMService handles Firebase Cloud Messaging. It satisfies Notifier.
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string) (*FCMService, error) {
	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments (Railway, Fly.io, Render) where you can't upload files easily
func NewFCMServiceFromBase64(credentialsBase64 string) (*FCMService, error) {
	ctx := context.Background()

	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}

	opt := option.WithCredentialsJSON(credentialsJSON)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// Notify sends the same message to all of a user's registered device tokens
func (s *FCMService) Notify(tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}
	ctx := context.Background()

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	log.Printf("✅ FCM multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return nil
}

// SendShiftPublishedNotification tells a guard a new shift is waiting for acceptance
func (s *FCMService) SendShiftPublishedNotification(tokens []string, shiftID, siteName string, scheduledStart int64) error {
	return s.Notify(tokens,
		"New Shift Assigned!",
		fmt.Sprintf("You have a shift at %s. Open the app to accept or decline.", siteName),
		map[string]string{
			"type":            "shift_published",
			"shift_id":        shiftID,
			"scheduled_start": strconv.FormatInt(scheduledStart, 10),
		})
}

// SendShiftCancelledNotification tells a guard a shift was withdrawn
func (s *FCMService) SendShiftCancelledNotification(tokens []string, shiftID string) error {
	return s.Notify(tokens,
		"Shift Cancelled",
		"One of your upcoming shifts has been cancelled by your manager.",
		map[string]string{
			"type":     "shift_cancelled",
			"shift_id": shiftID,
		})
}
