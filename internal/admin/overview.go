// Package admin builds the operations dashboard from recent store documents.
package admin

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/byteaxis/byteaxis-api/internal/pricing"
	"github.com/byteaxis/byteaxis-api/internal/store"
)

const (
	requestsQuery = `*[_type == "quotationRequest"] | order(_createdAt desc)[0...50]{
  _id, projectName, companyName, status, total, client, _createdAt
}`
	paymentsQuery = `*[_type == "paymentRequest"] | order(_createdAt desc)[0...50]{
  _id, amount, currency, status, email, projectName, _createdAt
}`
	newslettersQuery = `*[_type == "newsletterSignup"] | order(_createdAt desc)[0...50]{
  _id, email, interests, _createdAt
}`
)

// MonthBuckets is the number of trailing months in the request chart.
const MonthBuckets = 6

type Client struct {
	ExternalUserID string `json:"externalUserId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
}

type Request struct {
	ID          string    `json:"_id"`
	ProjectName string    `json:"projectName"`
	CompanyName string    `json:"companyName"`
	Status      string    `json:"status"`
	Total       float64   `json:"total"`
	Client      *Client   `json:"client,omitempty"`
	CreatedAt   time.Time `json:"_createdAt"`
}

type Payment struct {
	ID          string    `json:"_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Email       string    `json:"email"`
	ProjectName string    `json:"projectName"`
	CreatedAt   time.Time `json:"_createdAt"`
}

type Signup struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	Interests string    `json:"interests"`
	CreatedAt time.Time `json:"_createdAt"`
}

// Stats are the dashboard headline numbers.
type Stats struct {
	Requests int `json:"requests"`
	// Pending counts requests whose status is anything but completed.
	Pending  int    `json:"pending"`
	Payments int    `json:"payments"`
	Revenue  string `json:"revenueUsd"`
}

type MonthBucket struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Overview is the admin dashboard payload.
type Overview struct {
	Stats       Stats         `json:"stats"`
	Monthly     []MonthBucket `json:"monthlyRequests"`
	Requests    []Request     `json:"requests"`
	Payments    []Payment     `json:"payments"`
	Newsletters []Signup      `json:"newsletters"`
}

// Service loads dashboard data.
type Service struct {
	reader store.Reader
}

func NewService(reader store.Reader) *Service {
	return &Service{reader: reader}
}

// Overview runs the three listing queries in parallel and aggregates them
// relative to now.
func (s *Service) Overview(ctx context.Context, now time.Time) (Overview, error) {
	var (
		requests    []Request
		payments    []Payment
		newsletters []Signup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return wrap("requests", s.reader.Query(gctx, requestsQuery, nil, &requests))
	})
	g.Go(func() error {
		return wrap("payments", s.reader.Query(gctx, paymentsQuery, nil, &payments))
	})
	g.Go(func() error {
		return wrap("newsletters", s.reader.Query(gctx, newslettersQuery, nil, &newsletters))
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	if requests == nil {
		requests = []Request{}
	}
	if payments == nil {
		payments = []Payment{}
	}
	if newsletters == nil {
		newsletters = []Signup{}
	}
	return Overview{
		Stats:       ComputeStats(requests, payments),
		Monthly:     MonthlyRequests(requests, now),
		Requests:    requests,
		Payments:    payments,
		Newsletters: newsletters,
	}, nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("admin: load %s: %w", what, err)
}

// ComputeStats derives the headline numbers.
func ComputeStats(requests []Request, payments []Payment) Stats {
	stats := Stats{Requests: len(requests), Payments: len(payments)}
	for _, r := range requests {
		if r.Status != "completed" {
			stats.Pending++
		}
	}
	var revenue float64
	for _, p := range payments {
		revenue += p.Amount
	}
	stats.Revenue = pricing.FormatAmount(revenue)
	return stats
}

// MonthlyRequests counts requests into the trailing MonthBuckets calendar
// months ending with now's month, oldest first, in now's location.
func MonthlyRequests(requests []Request, now time.Time) []MonthBucket {
	loc := now.Location()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	buckets := make([]MonthBucket, MonthBuckets)
	index := make(map[string]int, MonthBuckets)
	for i := 0; i < MonthBuckets; i++ {
		month := first.AddDate(0, i-(MonthBuckets-1), 0)
		key := month.Format("2006-01")
		buckets[i] = MonthBucket{Key: key, Label: month.Format("Jan")}
		index[key] = i
	}
	for _, r := range requests {
		if r.CreatedAt.IsZero() {
			continue
		}
		if i, ok := index[r.CreatedAt.In(loc).Format("2006-01")]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}
