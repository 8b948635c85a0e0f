package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"librohub/internal/core/domain"
)

// NotificationService delivers loan lifecycle events to the library's
// notification webhook. It implements domain.EventPublisher; delivery
// runs in the background so the loan path never blocks on the network.
type NotificationService struct {
	webhookURL string
	token      string
	enabled    bool
	client     *http.Client
}

// NewNotificationService creates a new notification service
func NewNotificationService() *NotificationService {
	url := os.Getenv("NOTIFY_WEBHOOK_URL")
	return &NotificationService{
		webhookURL: url,
		token:      os.Getenv("NOTIFY_WEBHOOK_TOKEN"),
		enabled:    url != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// IsEnabled checks if webhook delivery is enabled
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

// Publish records the event and hands it to the webhook sender.
func (s *NotificationService) Publish(event domain.Event) {
	log.Printf("📣 Event %s loan=%d book=%d borrower=%d", event.Type, event.LoanID, event.BookID, event.BorrowerID)
	go s.deliver(event)
}

// deliver posts the event to the webhook. Failures are logged and
// dropped; notifications are best-effort.
func (s *NotificationService) deliver(event domain.Event) {
	if !s.enabled {
		return
	}

	payload := struct {
		Message string       `json:"message"`
		Event   domain.Event `json:"event"`
	}{
		Message: s.message(event),
		Event:   event,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️ Notification marshal failed: %v", err)
		return
	}

	req, err := http.NewRequest("POST", s.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("⚠️ Notification request failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("⚠️ Notification delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("⚠️ Notification webhook returned %d", resp.StatusCode)
	}
}

// message renders a human-readable line per event type
func (s *NotificationService) message(event domain.Event) string {
	switch event.Type {
	case domain.EventLoanCreated:
		return fmt.Sprintf("📖 Loan #%d created: book #%d to borrower #%d, due %s",
			event.LoanID, event.BookID, event.BorrowerID, event.DueAt.Format("2006-01-02"))
	case domain.EventLoanReturned:
		if event.Fine != nil {
			return fmt.Sprintf("✅ Loan #%d returned with fine %.2f (%s)",
				event.LoanID, event.Fine.Amount, event.Fine.Reason)
		}
		return fmt.Sprintf("✅ Loan #%d returned on time", event.LoanID)
	case domain.EventLoanRenewed:
		return fmt.Sprintf("🔄 Loan #%d renewed, new due date %s",
			event.LoanID, event.DueAt.Format("2006-01-02"))
	case domain.EventLoanOverdue:
		return fmt.Sprintf("⏰ Loan #%d is overdue since %s, borrower #%d",
			event.LoanID, event.DueAt.Format("2006-01-02"), event.BorrowerID)
	case domain.EventLoanLost:
		return fmt.Sprintf("❌ Loan #%d reported lost; copy of book #%d removed from circulation",
			event.LoanID, event.BookID)
	default:
		return fmt.Sprintf("Event %s for loan #%d", event.Type, event.LoanID)
	}
}
