package imdb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chromedp/chromedp"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
)

// reviewRecord is the raw shape scraped off a single review card.
type reviewRecord struct {
	IMDBID  string `json:"imdbID"`
	Title   string `json:"title"`
	Year    string `json:"year"`
	Rating  string `json:"rating"`
	Text    string `json:"text"`
	Spoiler bool   `json:"spoiler"`
	Date    string `json:"date"`
}

// extractReviewsJS maps every review card on the user's reviews page into a
// plain record. Runs after all pages have been expanded.
const extractReviewsJS = `
Array.from(document.querySelectorAll('div.lister-item')).map(function (card) {
	var link = card.querySelector('a[href*="/title/tt"]');
	var match = link ? link.getAttribute('href').match(/tt\d+/) : null;
	var rating = card.querySelector('.rating-other-user-rating span');
	var text = card.querySelector('.content .text');
	var date = card.querySelector('.review-date');
	var year = card.querySelector('.lister-item-year');
	return {
		imdbID: match ? match[0] : '',
		title: link ? link.textContent.trim() : '',
		year: year ? year.textContent.replace(/[()]/g, '').trim() : '',
		rating: rating ? rating.textContent.trim() : '',
		text: text ? text.textContent.trim() : '',
		spoiler: card.querySelector('.spoiler-warning') !== null,
		date: date ? date.textContent.trim() : ''
	};
});
`

const loadMoreSelector = `button.load-more-data, .load-more-data button`

// FetchReviews scrapes the account's review page. Per-card extraction
// failures do not abort the fetch; hadErrors reports whether any card was
// dropped so the caller can avoid treating a partial list as authoritative.
func (d *Driver) FetchReviews(ctx context.Context) (items []models.MediaItem, hadErrors bool, err error) {
	reviewsURL := fmt.Sprintf("%s/user/%s/reviews", siteURL, d.userID)
	if err := d.navigate(ctx, reviewsURL); err != nil {
		return nil, false, err
	}

	if err := d.expandAllReviews(ctx); err != nil {
		d.logger.WithError(err).Warn("Failed to expand all review pages, continuing with loaded reviews")
		hadErrors = true
	}

	var records []reviewRecord
	if err := d.run(ctx, chromedp.Evaluate(extractReviewsJS, &records)); err != nil {
		return nil, false, fmt.Errorf("failed to extract reviews: %w", err)
	}

	for _, record := range records {
		if record.IMDBID == "" || record.Text == "" {
			hadErrors = true
			d.logger.WithField("title", record.Title).Warn("Skipping review with missing id or body")
			continue
		}

		item := models.MediaItem{
			IMDBID:    record.IMDBID,
			Title:     record.Title,
			Comment:   record.Text,
			Spoiler:   record.Spoiler,
			MediaType: models.MediaTypeMovie,
		}
		if yearValue := parseYear(record.Year); yearValue != nil {
			item.Year = yearValue
		}
		if record.Year != "" && !isDigits(record.Year) {
			// Series years render as a range like "2019–2023".
			item.MediaType = models.MediaTypeShow
		}
		if rating, err := strconv.Atoi(record.Rating); err == nil {
			item.Rating = rating
		}
		if t, err := models.ParseDate(record.Date); err == nil {
			item.DateAdded = t
		}
		items = append(items, item)
	}

	return items, hadErrors, nil
}

// expandAllReviews clicks the load-more control until every page of reviews
// is in the DOM.
func (d *Driver) expandAllReviews(ctx context.Context) error {
	for {
		var present bool
		err := d.run(ctx, chromedp.Evaluate(
			fmt.Sprintf(`document.querySelector(%q) !== null`, loadMoreSelector), &present))
		if err != nil {
			return err
		}
		if !present {
			return nil
		}
		if err := d.run(ctx, chromedp.Click(loadMoreSelector, chromedp.ByQuery)); err != nil {
			return err
		}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
