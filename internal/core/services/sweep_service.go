package services

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"librohub/internal/adapters/persistence/repositories"
	"librohub/internal/core/domain"
	"librohub/internal/pkg/clock"
)

// SweepService periodically scans for loans that have gone overdue and
// emits a single overdue event per loan. Loan rows keep their active
// status; overdue is a derived view, the sweep only stamps the
// notification marker so a loan is never reported twice.
type SweepService struct {
	loans     repositories.LoanStore
	clock     clock.Clock
	publisher domain.EventPublisher
	schedule  string
	cron      *cron.Cron
}

// NewSweepService creates a new overdue sweep service
func NewSweepService(loans repositories.LoanStore, clk clock.Clock, publisher domain.EventPublisher, schedule string) *SweepService {
	return &SweepService{
		loans:     loans,
		clock:     clk,
		publisher: publisher,
		schedule:  schedule,
	}
}

// Start schedules the sweep with the configured cron expression.
func (s *SweepService) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Run(context.Background()); err != nil {
			log.Printf("❌ Overdue sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("⏰ Overdue sweep scheduled [%s]", s.schedule)

	// Catch up immediately so loans that went overdue while the server
	// was down are not silent until the next scheduled pass.
	go func() {
		if _, err := s.Run(context.Background()); err != nil {
			log.Printf("❌ Overdue sweep failed: %v", err)
		}
	}()
	return nil
}

// Stop halts the scheduler. Already-running sweeps finish.
func (s *SweepService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Run performs one sweep pass and returns how many loans were
// reported. The notification marker is stamped with a conditional
// update, so concurrent or repeated runs emit each loan at most once.
func (s *SweepService) Run(ctx context.Context) (int, error) {
	now := s.clock.Now()

	overdue, err := s.loans.ListOverdueUnnotified(ctx, now)
	if err != nil {
		return 0, err
	}

	reported := 0
	for _, loan := range overdue {
		stamped, err := s.loans.MarkOverdueNotified(ctx, loan.ID, now)
		if err != nil {
			log.Printf("⚠️ Sweep: could not stamp loan %d: %v", loan.ID, err)
			continue
		}
		if !stamped {
			// Another pass got there first.
			continue
		}
		if s.publisher != nil {
			s.publisher.Publish(domain.NewEvent(domain.EventLoanOverdue, loan, now))
		}
		reported++
	}

	if reported > 0 {
		log.Printf("⏰ Overdue sweep reported %d loan(s)", reported)
	}
	return reported, nil
}
