// Package delayscheduler implementa el Delay Scheduler (spec §5): la tabla
// Postgres `delays` es la fuente de verdad durable, sondeada por un cron
// tick, y los delays vencidos solo se entregan en ese sondeo. Redis, si está
// configurado, solo guarda un índice de las esperas cortas (menores al
// umbral) que ningún componente lee.
package delayscheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"github.com/Abraxas-365/relay/engine"
)

const (
	fastPathSetKey    = "relay:delays:fastpath"
	fastPathThreshold = 30 * time.Second
	defaultPollEvery  = 20 * time.Second
)

// OnDueFunc entrega de vuelta un delay vencido como evento sintético
// delay_complete; desacopla el scheduler de la Orchestrator/Intake para
// evitar un import cycle entre delayscheduler e intake.
type OnDueFunc func(ctx context.Context, d engine.Delay) error

// Scheduler implementa engine.DelayScheduler
type Scheduler struct {
	delays       engine.DelayRepository
	redis        *redis.Client
	cron         *cron.Cron
	onDue        OnDueFunc
	pollInterval time.Duration
	fastPath     time.Duration
}

// New construye el scheduler; redisClient es opcional (nil desactiva el
// camino rápido, degradando con gracia al solo-cron).
func New(delays engine.DelayRepository, redisClient *redis.Client, onDue OnDueFunc, pollInterval time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = defaultPollEvery
	}
	return &Scheduler{
		delays:       delays,
		redis:        redisClient,
		cron:         cron.New(),
		onDue:        onDue,
		pollInterval: pollInterval,
		fastPath:     fastPathThreshold,
	}
}

var _ engine.DelayScheduler = (*Scheduler)(nil)

// Schedule indexa el delay en Redis cuando su ventana cabe en el camino
// rápido; el Store ya persistió la fila en Postgres (responsabilidad de la
// Orchestrator). El set de Redis no se consulta: la entrega depende solo del
// sondeo durable (sweep), que únicamente lo poda.
func (s *Scheduler) Schedule(ctx context.Context, d engine.Delay) error {
	if s.redis == nil || s.ShouldUseAsync(time.Until(d.DelayCompletesAt)) {
		return nil
	}
	return s.redis.ZAdd(ctx, fastPathSetKey, &redis.Z{
		Score:  float64(d.DelayCompletesAt.Unix()),
		Member: string(d.ID),
	}).Err()
}

// ShouldUseAsync reporta si una espera debe delegarse únicamente al sondeo
// durable en vez de también indexarse en el camino rápido de Redis.
func (s *Scheduler) ShouldUseAsync(duration time.Duration) bool {
	return duration > s.fastPath
}

// StartWorker registra el tick de sondeo y arranca el cron.
func (s *Scheduler) StartWorker(ctx context.Context) {
	spec := fmt.Sprintf("@every %s", s.pollInterval)
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.sweep(ctx); err != nil {
			log.Printf("delay scheduler sweep failed: %v", err)
		}
	}); err != nil {
		log.Printf("delay scheduler: failed to register sweep: %v", err)
		return
	}
	s.cron.Start()
	log.Println("delay scheduler worker started")
}

// StopWorker detiene el cron y espera a que el tick en curso termine.
func (s *Scheduler) StopWorker() {
	<-s.cron.Stop().Done()
	log.Println("delay scheduler worker stopped")
}

// GetPendingCount cuenta delays aún no procesados, sin importar si ya
// vencieron; usa un horizonte lejano ya que DelayRepository solo expone
// FindDue(now).
func (s *Scheduler) GetPendingCount(ctx context.Context) (int64, error) {
	horizon := time.Now().AddDate(100, 0, 0)
	due, err := s.delays.FindDue(ctx, horizon)
	if err != nil {
		return 0, err
	}
	return int64(len(due)), nil
}

// sweep procesa todos los delays vencidos en una sola pasada (spec §5);
// un fallo de entrega deja `processed=false` y el próximo tick reintenta.
func (s *Scheduler) sweep(ctx context.Context) error {
	due, err := s.delays.FindDue(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, d := range due {
		if err := s.onDue(ctx, d); err != nil {
			log.Printf("delay scheduler: failed to deliver delay_complete for %s: %v", d.ID, err)
			continue
		}
		if err := s.delays.MarkProcessed(ctx, d.ID); err != nil {
			log.Printf("delay scheduler: failed to mark delay %s processed: %v", d.ID, err)
			continue
		}
		if s.redis != nil {
			s.redis.ZRem(ctx, fastPathSetKey, string(d.ID))
		}
	}
	return nil
}
