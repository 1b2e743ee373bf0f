package eventbus_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/graphflow/pkg/eventbus"
	"github.com/dukex/graphflow/pkg/events"
	"github.com/dukex/graphflow/pkg/mocks"
	"github.com/stretchr/testify/mock"
)

func TestNotifier_PublishesUnderKey(t *testing.T) {
	publisher := &mocks.MockEventPublisher{}
	event := events.NodeFailed{BaseEvent: events.NewBaseEvent(events.NodeFailedEvent, "exec-1")}

	publisher.On("Publish", mock.Anything, "exec-1", event).Return(nil).Once()
	publisher.On("Publish", mock.Anything, "exec-2", event).Return(errors.New("broker down")).Once()

	notifier := eventbus.NewNotifier(publisher, slog.Default())
	notifier.Notify(context.Background(), "exec-1", event)
	notifier.Notify(context.Background(), "exec-2", event)

	publisher.AssertExpectations(t)
}
