package amocrm

import (
	"context"

	"github.com/tidwall/gjson"
)

// LegacyLocator reads the single page listing, where integrations are grouped by
// category: `widgets.own_integrations.<category>.<code> = record`.
type LegacyLocator struct {
	session *Session
}

func NewLegacyLocator(session *Session) LegacyLocator {
	return LegacyLocator{session: session}
}

func (l LegacyLocator) walk(ctx context.Context, reportId string, fn func(WidgetRecord) bool) error {
	categories, err := l.session.ownIntegrations(ctx, reportId, 1)
	if err != nil {
		return err
	}

	done := false
	categories.ForEach(func(_, integrations gjson.Result) bool {
		eachRecord(integrations, func(record WidgetRecord) bool {
			done = !fn(record)
			return !done
		})
		return !done
	})
	return nil
}

func (l LegacyLocator) FindExistingUuid(ctx context.Context, name string) (string, bool, error) {
	return find(ctx, l.session, l.walk, name)
}

func (l LegacyLocator) List(ctx context.Context) ([]WidgetRecord, error) {
	return list(ctx, l.walk)
}
