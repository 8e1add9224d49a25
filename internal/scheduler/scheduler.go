// Package scheduler runs the corpus maintenance jobs on fixed intervals.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/patente-app/backend/internal/models"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 30 * time.Minute

type CrossReferencer interface {
	RunCrossReference(ctx context.Context) (*models.CrossRefReport, error)
}

type Translator interface {
	TranslateMissing(ctx context.Context) (*models.TranslateReport, error)
}

// Intervals of zero disable the corresponding job.
type Intervals struct {
	CrossRef  time.Duration
	Translate time.Duration
}

type Scheduler struct {
	scheduler  *gocron.Scheduler
	crossref   CrossReferencer
	translator Translator
	intervals  Intervals
}

// New returns a scheduler; translator may be nil.
func New(crossref CrossReferencer, translator Translator, intervals Intervals) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		crossref:   crossref,
		translator: translator,
		intervals:  intervals,
	}
}

// Start registers the enabled jobs and runs them in the background. Each job
// is in singleton mode so a slow run is never overlapped by the next tick.
func (s *Scheduler) Start() error {
	if s.intervals.CrossRef > 0 && s.crossref != nil {
		if _, err := s.scheduler.Every(s.intervals.CrossRef).SingletonMode().Do(s.runCrossReference); err != nil {
			return fmt.Errorf("schedule crossref: %w", err)
		}
		log.Printf("[scheduler] crossref every %v", s.intervals.CrossRef)
	}
	if s.intervals.Translate > 0 && s.translator != nil {
		if _, err := s.scheduler.Every(s.intervals.Translate).SingletonMode().Do(s.runTranslate); err != nil {
			return fmt.Errorf("schedule translate: %w", err)
		}
		log.Printf("[scheduler] translate every %v", s.intervals.Translate)
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}

func (s *Scheduler) runCrossReference() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.crossref.RunCrossReference(ctx); err != nil {
		log.Printf("[scheduler] crossref: %v", err)
	}
}

func (s *Scheduler) runTranslate() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.translator.TranslateMissing(ctx); err != nil {
		log.Printf("[scheduler] translate: %v", err)
	}
}
