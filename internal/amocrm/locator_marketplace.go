package amocrm

import (
	"context"
	"fmt"
)

const (
	// MarketplacePageSize is the number of records the vendor puts on a full page.
	MarketplacePageSize = 20

	maxMarketplacePages = 1000
)

// MarketplaceLocator reads the paginated listing, where every page is a flat
// mapping: `widgets.own_integrations.<code> = record`.
//
// Pages are requested one at a time starting at 1, a page with fewer than
// MarketplacePageSize records is the last one.
type MarketplaceLocator struct {
	session *Session
}

func NewMarketplaceLocator(session *Session) MarketplaceLocator {
	return MarketplaceLocator{session: session}
}

func (l MarketplaceLocator) walk(ctx context.Context, reportId string, fn func(WidgetRecord) bool) error {
	for page := 1; page <= maxMarketplacePages; page++ {
		integrations, err := l.session.ownIntegrations(ctx, reportId, page)
		if err != nil {
			return err
		}

		count := 0
		done := false
		eachRecord(integrations, func(record WidgetRecord) bool {
			count++
			done = !fn(record)
			return !done
		})
		l.session.tel.ReportDebug("read listing page", page, count)

		if done || count < MarketplacePageSize {
			return nil
		}
	}

	err := fmt.Errorf("amocrm: listing did not end after %d pages", maxMarketplacePages)
	l.session.tel.ReportBroken(reportId, err)
	return err
}

func (l MarketplaceLocator) FindExistingUuid(ctx context.Context, name string) (string, bool, error) {
	return find(ctx, l.session, l.walk, name)
}

func (l MarketplaceLocator) List(ctx context.Context) ([]WidgetRecord, error) {
	return list(ctx, l.walk)
}
