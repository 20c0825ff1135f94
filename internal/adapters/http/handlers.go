package http

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nishantpoudel/assettrace/internal/core/domain"
	"github.com/nishantpoudel/assettrace/internal/pkg/metrics"
)

// ingestRequest is the POST /v1/events body. detected_at accepts either an
// RFC 3339 string or a Unix-epoch-milliseconds number, because deployed
// gateway firmware disagrees on the format.
type ingestRequest struct {
	EPC        string          `json:"epc"`
	ReaderID   string          `json:"reader_id"`
	DetectedAt json.RawMessage `json:"detected_at"`
	RSSI       *int            `json:"rssi"`
}

func parseDetectedAt(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339, s)
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// IngestEventHandler accepts a raw detection report and runs it through the
// full ingestion pipeline. Responds 201 even for unassigned-tag and stale
// outcomes: the event was accepted and recorded either way.
func IngestEventHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ingestRequest
		if err := c.BodyParser(&req); err != nil {
			metrics.EventsRejected.WithLabelValues("malformed_body").Inc()
			return errBadRequest(c, "invalid request body: "+err.Error())
		}
		if req.EPC == "" {
			metrics.EventsRejected.WithLabelValues("missing_epc").Inc()
			return errBadRequest(c, "epc is required")
		}
		if req.ReaderID == "" {
			metrics.EventsRejected.WithLabelValues("missing_reader").Inc()
			return errBadRequest(c, "reader_id is required")
		}

		detectedAt, err := parseDetectedAt(req.DetectedAt)
		if err != nil {
			metrics.EventsRejected.WithLabelValues("bad_timestamp").Inc()
			return errBadRequest(c, "detected_at must be RFC 3339 or epoch milliseconds")
		}

		result, err := deps.Ingest.Ingest(c.Context(), domain.DetectionReport{
			EPC:        req.EPC,
			ReaderID:   req.ReaderID,
			DetectedAt: detectedAt,
			RSSI:       req.RSSI,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrUnknownTag):
				metrics.EventsRejected.WithLabelValues("unknown_tag").Inc()
			case errors.Is(err, domain.ErrUnknownReader):
				metrics.EventsRejected.WithLabelValues("unknown_reader").Inc()
			}
			return mapDomainError(c, err)
		}

		metrics.EventsIngested.WithLabelValues(string(result.Outcome)).Inc()
		if result.Outcome == domain.OutcomeStale {
			metrics.StaleEventsDropped.Inc()
		}
		for _, a := range result.Alerts {
			metrics.AlertsEmitted.WithLabelValues(string(a.Type)).Inc()
		}
		return c.Status(201).JSON(result)
	}
}

// ViolationsHandler runs an on-demand violation scan over the trailing window.
func ViolationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		violations, err := deps.Violations.Scan(c.Context())
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"violations": violations,
			"count":      len(violations),
			"window":     deps.Violations.Window().String(),
			"scanned_at": time.Now().UTC(),
		})
	}
}

// ActiveAssetsHandler lists assets detected within the scan window, with the
// office each was last seen in.
func ActiveAssetsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		assets, err := deps.Violations.ActiveAssets(c.Context())
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"assets": assets,
			"count":  len(assets),
			"window": deps.Violations.Window().String(),
		})
	}
}

// AssetContainmentHandler returns the tracked containment state of one asset
// across all geofences it has been evaluated against.
func AssetContainmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		assetID := c.Params("id")
		states, err := deps.Containments.ContainmentStates(c.Context(), assetID)
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"asset_id": assetID,
			"states":   states,
		})
	}
}

// AssetCheckHandler evaluates an arbitrary coordinate against the geofences
// of an asset's expected office. Read-only; tracker state is untouched.
func AssetCheckHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return errBadRequest(c, "lat query parameter is required and must be a number")
		}
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			return errBadRequest(c, "lon query parameter is required and must be a number")
		}

		check, err := deps.Containments.CheckAssetLocation(c.Context(), c.Params("id"), domain.GeoPoint{Lat: lat, Lon: lon})
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(check)
	}
}

// ListOfficesHandler lists all offices.
func ListOfficesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offices, err := deps.Offices.List(c.Context())
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"offices": offices,
			"count":   len(offices),
		})
	}
}

// GetOfficeHandler returns one office by ID.
func GetOfficeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		office, err := deps.Offices.GetByID(c.Context(), c.Params("id"))
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(office)
	}
}

// ListReadersHandler lists all registered RFID readers, paginated.
func ListReadersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		readers, err := deps.Readers.List(c.Context())
		if err != nil {
			return mapDomainError(c, err)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		page, p := paginate(len(readers), offset, limit)
		SetLinkHeaders(c, p)

		return c.JSON(PaginatedResponse{Data: readers[page.lo:page.hi], Pagination: p})
	}
}

// GetReaderHandler returns one reader by row ID or device reader code.
func GetReaderHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reader, err := deps.Readers.GetByID(c.Context(), c.Params("id"))
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(reader)
	}
}

// ListTagsHandler lists RFID tags. ?active=true restricts to active tags.
func ListTagsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		activeOnly := c.QueryBool("active", false)
		tags, err := deps.Tags.List(c.Context(), activeOnly)
		if err != nil {
			return mapDomainError(c, err)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		page, p := paginate(len(tags), offset, limit)
		SetLinkHeaders(c, p)

		return c.JSON(PaginatedResponse{Data: tags[page.lo:page.hi], Pagination: p})
	}
}

// GetTagHandler returns one tag by ID.
func GetTagHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tag, err := deps.Tags.GetByID(c.Context(), c.Params("id"))
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(tag)
	}
}

// RecentEventsHandler lists recent detection events, optionally filtered by
// reader or tag.
func RecentEventsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)
		if limit < 1 || limit > 1000 {
			return errBadRequest(c, "limit must be between 1 and 1000")
		}

		var (
			events []domain.DetectionEvent
			err    error
		)
		switch {
		case c.Query("reader_id") != "":
			events, err = deps.Events.ListByReader(c.Context(), c.Query("reader_id"), limit)
		case c.Query("tag_id") != "":
			events, err = deps.Events.ListByTag(c.Context(), c.Query("tag_id"), limit)
		default:
			events, err = deps.Events.ListRecent(c.Context(), limit)
		}
		if err != nil {
			return mapDomainError(c, err)
		}

		return c.JSON(fiber.Map{
			"events": events,
			"count":  len(events),
		})
	}
}

// GetEventHandler returns one detection event by ID.
func GetEventHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ev, err := deps.Events.GetByID(c.Context(), c.Params("id"))
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(ev)
	}
}

// AlertsHandler lists recently emitted geofence alerts.
func AlertsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)
		if limit < 1 || limit > 1000 {
			return errBadRequest(c, "limit must be between 1 and 1000")
		}
		alerts, err := deps.Alerts.ListRecent(c.Context(), limit)
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"alerts": alerts,
			"count":  len(alerts),
		})
	}
}

// StatsHandler returns aggregate counts for dashboards. Queries the pool
// directly: these are one-off aggregates, not domain operations.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not configured")
		}
		ctx := c.Context()

		stats := struct {
			Offices     int `json:"offices"`
			Assets      int `json:"assets"`
			ActiveTags  int `json:"active_tags"`
			Readers     int `json:"readers"`
			Geofences   int `json:"geofences"`
			Events24h   int `json:"events_24h"`
			Alerts24h   int `json:"alerts_24h"`
			EventsTotal int `json:"events_total"`
		}{}

		queries := []struct {
			sql  string
			dest *int
		}{
			{"SELECT COUNT(*) FROM offices", &stats.Offices},
			{"SELECT COUNT(*) FROM assets", &stats.Assets},
			{"SELECT COUNT(*) FROM rfid_tags WHERE is_active", &stats.ActiveTags},
			{"SELECT COUNT(*) FROM rfid_readers", &stats.Readers},
			{"SELECT COUNT(*) FROM geofences", &stats.Geofences},
			{"SELECT COUNT(*) FROM detection_events WHERE detected_at >= now() - interval '24 hours'", &stats.Events24h},
			{"SELECT COUNT(*) FROM alerts WHERE occurred_at >= now() - interval '24 hours'", &stats.Alerts24h},
			{"SELECT COUNT(*) FROM detection_events", &stats.EventsTotal},
		}
		for _, q := range queries {
			if err := deps.DB.Pool.QueryRow(ctx, q.sql).Scan(q.dest); err != nil {
				return errInternal(c, "stats query failed: "+err.Error())
			}
		}

		return c.JSON(stats)
	}
}

// DailyEventCountsHandler returns per-day detection counts for the last N
// days (default 7, max 90).
func DailyEventCountsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days := c.QueryInt("days", 7)
		if days < 1 || days > 90 {
			return errBadRequest(c, "days must be between 1 and 90")
		}
		since := time.Now().UTC().AddDate(0, 0, -days)

		counts, err := deps.Events.DailyCounts(c.Context(), since)
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(fiber.Map{
			"since":  since.Format("2006-01-02"),
			"days":   days,
			"counts": counts,
		})
	}
}

// ReaderActivityHandler returns per-reader detection counts over the last N
// hours (default 24), including silent readers with zero detections.
func ReaderActivityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not configured")
		}
		hours := c.QueryInt("hours", 24)
		if hours < 1 || hours > 720 {
			return errBadRequest(c, "hours must be between 1 and 720")
		}
		since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

		rows, err := deps.DB.Pool.Query(c.Context(), `
			SELECT r.id, r.reader_id, r.name, r.office_id, r.status,
			       COUNT(e.id) AS detections
			FROM rfid_readers r
			LEFT JOIN detection_events e ON e.reader_id = r.id AND e.detected_at >= $1
			GROUP BY r.id, r.reader_id, r.name, r.office_id, r.status
			ORDER BY detections DESC, r.name`, since)
		if err != nil {
			return errInternal(c, "activity query failed: "+err.Error())
		}
		defer rows.Close()

		type readerActivity struct {
			ID         string `json:"id"`
			ReaderID   string `json:"reader_id"`
			Name       string `json:"name"`
			OfficeID   string `json:"office_id"`
			Status     string `json:"status"`
			Detections int    `json:"detections"`
		}
		activity := make([]readerActivity, 0)
		for rows.Next() {
			var a readerActivity
			if err := rows.Scan(&a.ID, &a.ReaderID, &a.Name, &a.OfficeID, &a.Status, &a.Detections); err != nil {
				return errInternal(c, "activity scan failed: "+err.Error())
			}
			activity = append(activity, a)
		}
		if err := rows.Err(); err != nil {
			return errInternal(c, "activity query failed: "+err.Error())
		}

		return c.JSON(fiber.Map{
			"since":   since,
			"hours":   hours,
			"readers": activity,
		})
	}
}

type pageBounds struct{ lo, hi int }

// paginate clamps offset/limit against the in-memory slice length and builds
// the pagination metadata for the response.
func paginate(total, offset, limit int) (pageBounds, Pagination) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	lo := offset
	if lo > total {
		lo = total
	}
	hi := lo + limit
	if hi > total {
		hi = total
	}
	return pageBounds{lo: lo, hi: hi}, Pagination{Offset: offset, Limit: limit, Total: total}
}
