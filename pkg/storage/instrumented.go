package storage

import (
	"context"
	"errors"
	"io"

	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
)

type instrumented struct {
	next    Store
	metrics *metrics.Metrics
}

// Instrument counts every store operation by outcome.
func Instrument(s Store, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{next: s, metrics: m}
}

func (i *instrumented) count(op string, err error) {
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	i.metrics.AssetOperations.WithLabelValues(op, status).Inc()
}

func (i *instrumented) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (*Asset, error) {
	a, err := i.next.Upload(ctx, key, contentType, body, size)
	i.count("upload", err)
	return a, err
}

func (i *instrumented) Open(ctx context.Context, key string) (*Object, error) {
	o, err := i.next.Open(ctx, key)
	i.count("open", err)
	return o, err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	err := i.next.Delete(ctx, key)
	i.count("delete", err)
	return err
}
