package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"slotkeeper/pkg/model"
)

const (
	availabilityPath = "/api/v1/availability"
	bookingsPath     = "/api/v1/bookings"
	tenantHeader     = "X-Tenant-ID"
)

// AvailabilityClient calls the slot search and booking endpoints.
type AvailabilityClient struct {
	httpClient *HttpClient
}

func NewAvailabilityClient(baseURL string) *AvailabilityClient {
	return &AvailabilityClient{httpClient: NewHttpClient(baseURL)}
}

func (c *AvailabilityClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *AvailabilityClient) FreeSlot(ctx context.Context, tenantID string, from, to time.Time, durationMin int) (*model.Slot, *Response, error) {
	q := url.Values{}
	q.Set("tenant_id", tenantID)
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))
	q.Set("duration_min", strconv.Itoa(durationMin))

	return c.getSlot(ctx, availabilityPath+"/free-slot", q)
}

func (c *AvailabilityClient) NextSlot(ctx context.Context, tenantID string, from time.Time, durationMin, daysLookahead int) (*model.Slot, *Response, error) {
	q := url.Values{}
	q.Set("tenant_id", tenantID)
	q.Set("from", from.Format(time.RFC3339))
	q.Set("duration_min", strconv.Itoa(durationMin))
	q.Set("days_lookahead", strconv.Itoa(daysLookahead))

	return c.getSlot(ctx, availabilityPath+"/next-slot", q)
}

func (c *AvailabilityClient) FreeStaff(ctx context.Context, tenantID string, startAt, endAt time.Time) ([]string, *Response, error) {
	q := url.Values{}
	q.Set("tenant_id", tenantID)
	q.Set("start_at", startAt.Format(time.RFC3339))
	q.Set("end_at", endAt.Format(time.RFC3339))

	resp, err := c.httpClient.GET(ctx, availabilityPath+"/free-staff", q)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil, resp, err
	}
	var staff []string
	if err := resp.DecodeData(&staff); err != nil {
		return nil, resp, err
	}
	return staff, resp, nil
}

func (c *AvailabilityClient) OptimalSlots(ctx context.Context, serviceID, resourceID, startDate, endDate string, maxResults int) ([]model.Slot, *Response, error) {
	q := url.Values{}
	q.Set("service_id", serviceID)
	if resourceID != "" {
		q.Set("resource_id", resourceID)
	}
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	if maxResults > 0 {
		q.Set("max_results", strconv.Itoa(maxResults))
	}

	resp, err := c.httpClient.GET(ctx, availabilityPath+"/optimal-slots", q)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil, resp, err
	}
	var slots []model.Slot
	if err := resp.DecodeData(&slots); err != nil {
		return nil, resp, err
	}
	return slots, resp, nil
}

// Book commits a reservation. idempotencyKey may be empty.
func (c *AvailabilityClient) Book(ctx context.Context, body any, idempotencyKey string) (*model.Reservation, *Response, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	resp, err := c.httpClient.POST(ctx, bookingsPath, body, headers)
	if err != nil || resp.StatusCode != http.StatusCreated {
		return nil, resp, err
	}
	return decodeReservation(resp)
}

func (c *AvailabilityClient) GetReservation(ctx context.Context, tenantID, id string) (*model.Reservation, *Response, error) {
	q := url.Values{}
	q.Set("tenant_id", tenantID)

	resp, err := c.httpClient.GET(ctx, bookingsPath+"/id/"+url.PathEscape(id), q)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil, resp, err
	}
	return decodeReservation(resp)
}

func (c *AvailabilityClient) CancelReservation(ctx context.Context, tenantID, id string) (*model.Reservation, *Response, error) {
	headers := map[string]string{tenantHeader: tenantID}

	resp, err := c.httpClient.POST(ctx, bookingsPath+"/id/"+url.PathEscape(id)+"/cancel", struct{}{}, headers)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil, resp, err
	}
	return decodeReservation(resp)
}

func decodeReservation(resp *Response) (*model.Reservation, *Response, error) {
	var reservation model.Reservation
	if err := resp.DecodeData(&reservation); err != nil {
		return nil, resp, fmt.Errorf("could not decode reservation: %w", err)
	}
	return &reservation, resp, nil
}

func (c *AvailabilityClient) getSlot(ctx context.Context, path string, q url.Values) (*model.Slot, *Response, error) {
	resp, err := c.httpClient.GET(ctx, path, q)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil, resp, err
	}
	var slot model.Slot
	if err := resp.DecodeData(&slot); err != nil {
		return nil, resp, err
	}
	return &slot, resp, nil
}
