package fanout

import (
	"context"
	"errors"

	"github.com/Freeeeeet/tutor_booking/internal/model"
)

// Publisher получатель событий новых сообщений
type Publisher interface {
	Publish(ctx context.Context, event model.MessageEvent) error
}

// Multi публикует событие во все получатели; ошибка одного не мешает остальным
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event model.MessageEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
