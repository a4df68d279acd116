package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// NotificationMessage is the envelope published to the notifications topic.
// Delivery (email/push rendering) is owned by the downstream subscriber; the
// engine only decides whether and what to send.
type NotificationMessage struct {
	NotificationId int       `json:"notification_id"`
	RecipientEmail string    `json:"recipient_email"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	ReferenceType  string    `json:"reference_type"`
	ReferenceId    int       `json:"reference_id"`
	SentAt         time.Time `json:"sent_at"`
	CorrelationId  string    `json:"correlation_id"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func IsPubSubConfigured() bool {
	return getPubSubProjectID() != "" && getNotifyTopicID() != ""
}

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getNotifyTopicID() string {
	return strings.TrimSpace(os.Getenv("PUBSUB_NOTIFY_TOPIC"))
}

// GetPubSubClient returns a Pub/Sub client, initializing with retries if needed.
// It uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is provided.
func GetPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	if pubsubClient != nil {
		c := pubsubClient
		pubsubClientMu.Unlock()
		return c, nil
	}
	pubsubClientMu.Unlock()

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON")

	var attempt int
	for {
		attempt++
		var client *pubsub.Client
		var err error
		if strings.TrimSpace(credJSON) != "" {
			client, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
		} else {
			client, err = pubsub.NewClient(ctx, projectID)
		}
		if err == nil {
			pubsubClientMu.Lock()
			pubsubClient = client
			pubsubClientMu.Unlock()
			return client, nil
		}
		if attempt >= 3 {
			return nil, err
		}
		log.Printf("failed to create pubsub client (attempt=%d): %v", attempt, err)
		time.Sleep(time.Second * time.Duration(attempt))
	}
}

// PublishNotification publishes one notification envelope and waits for the
// server-assigned message id. Callers treat failures as best-effort: they log
// and keep the Notification row as the durable record.
func PublishNotification(ctx context.Context, msg NotificationMessage) (string, error) {
	topicID := getNotifyTopicID()
	if topicID == "" {
		return "", errors.New("PUBSUB_NOTIFY_TOPIC not set")
	}
	client, err := GetPubSubClient(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	res := client.Topic(topicID).Publish(ctx, &pubsub.Message{Data: data})
	return res.Get(ctx)
}
