// Package archive mirrors completed sales into MongoDB for reporting.
// The mirror is write-behind: checkout hands events to a queue and a
// worker drains them, so archival latency and failures never reach the
// buyer. Readers should expect the collection to lag live data.
package archive

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lggm33/DUAD/internal/circuitbreaker"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/sales"
)

const defaultQueueSize = 64

// Document is the denormalized archive record for one sale.
type Document struct {
	SaleID        int64     `bson:"sale_id"`
	UserID        int64     `bson:"user_id"`
	SaleDate      time.Time `bson:"sale_date"`
	TotalMinor    int64     `bson:"total_minor"`
	Total         string    `bson:"total"`
	TotalItems    int       `bson:"total_items"`
	ProductCount  int       `bson:"product_count"`
	PaymentMethod string    `bson:"payment_method,omitempty"`
	InvoiceID     int64     `bson:"invoice_id,omitempty"`
	Products      []Line    `bson:"products"`
	ArchivedAt    time.Time `bson:"archived_at"`
}

// Line is one archived sale line with the price captured at sale time.
type Line struct {
	ProductID     int64  `bson:"product_id"`
	ProductName   string `bson:"product_name"`
	Quantity      int    `bson:"quantity"`
	PriceMinor    int64  `bson:"price_minor"`
	Price         string `bson:"price"`
	SubtotalMinor int64  `bson:"subtotal_minor"`
}

// Sink persists archive documents. Upserts are keyed by sale id, so a
// replayed event overwrites rather than duplicates.
type Sink interface {
	Upsert(ctx context.Context, doc Document) error
	Close(ctx context.Context) error
}

// SaleSource loads the denormalized sale the archiver writes.
type SaleSource interface {
	Detail(ctx context.Context, saleID, requesterID int64) (sales.Detail, error)
}

// Archiver subscribes to checkout events and drains them into the sink.
type Archiver struct {
	sink    Sink
	sales   SaleSource
	breaker *circuitbreaker.Manager
	logger  zerolog.Logger
	queue   chan observability.CheckoutCompletedEvent
	stop    chan struct{}
	done    chan struct{}
}

// New starts an archiver worker. queueSize bounds the backlog; events
// arriving on a full queue are dropped with a warning.
func New(sink Sink, saleSource SaleSource, breaker *circuitbreaker.Manager, logger zerolog.Logger, queueSize int) *Archiver {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	a := &Archiver{
		sink:    sink,
		sales:   saleSource,
		breaker: breaker,
		logger:  logger.With().Str("component", "archive").Logger(),
		queue:   make(chan observability.CheckoutCompletedEvent, queueSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Name identifies the archiver in the hook registry.
func (a *Archiver) Name() string { return "sale-archive" }

// OnCheckoutCompleted enqueues the sale for archival. Never blocks the
// checkout path.
func (a *Archiver) OnCheckoutCompleted(_ context.Context, event observability.CheckoutCompletedEvent) {
	select {
	case a.queue <- event:
	default:
		a.logger.Warn().Int64("sale_id", event.SaleID).Msg("archive.queue_full_event_dropped")
	}
}

// OnCheckoutFailed is a no-op; only committed sales are archived.
func (a *Archiver) OnCheckoutFailed(context.Context, observability.CheckoutFailedEvent) {}

func (a *Archiver) run() {
	defer close(a.done)
	for {
		select {
		case event := <-a.queue:
			a.archive(event)
		case <-a.stop:
			// Drain what checkout already handed over.
			for {
				select {
				case event := <-a.queue:
					a.archive(event)
				default:
					return
				}
			}
		}
	}
}

func (a *Archiver) archive(event observability.CheckoutCompletedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	detail, err := a.sales.Detail(ctx, event.SaleID, 0)
	if err != nil {
		a.logger.Error().Err(err).Int64("sale_id", event.SaleID).Msg("archive.load_sale_failed")
		return
	}

	doc := newDocument(detail, event)
	_, err = a.breaker.Execute(circuitbreaker.ServiceArchive, func() (interface{}, error) {
		return nil, a.sink.Upsert(ctx, doc)
	})
	if err != nil {
		a.logger.Error().Err(err).Int64("sale_id", event.SaleID).Msg("archive.write_failed")
		return
	}
	a.logger.Debug().Int64("sale_id", event.SaleID).Msg("archive.sale_archived")
}

func newDocument(detail sales.Detail, event observability.CheckoutCompletedEvent) Document {
	doc := Document{
		SaleID:        detail.SaleID,
		UserID:        detail.UserID,
		SaleDate:      detail.SaleDate,
		TotalMinor:    detail.Total.Minor(),
		Total:         detail.Total.Major(),
		TotalItems:    detail.TotalItems,
		ProductCount:  detail.ProductCount,
		PaymentMethod: event.PaymentMethod,
		InvoiceID:     event.InvoiceID,
		Products:      make([]Line, 0, len(detail.Products)),
		ArchivedAt:    time.Now().UTC(),
	}
	for _, p := range detail.Products {
		doc.Products = append(doc.Products, Line{
			ProductID:     p.ProductID,
			ProductName:   p.ProductName,
			Quantity:      p.Quantity,
			PriceMinor:    p.PriceAtSale.Minor(),
			Price:         p.PriceAtSale.Major(),
			SubtotalMinor: p.Subtotal.Minor(),
		})
	}
	return doc
}

// Close stops the worker, drains the queue and disconnects the sink.
func (a *Archiver) Close() error {
	close(a.stop)
	<-a.done

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.sink.Close(ctx)
}
