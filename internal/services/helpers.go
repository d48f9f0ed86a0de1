package services

import (
	"encoding/json"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/evalforge/assessment-platform/internal/events"
	"github.com/evalforge/assessment-platform/internal/repositories"
)

func nowUTC() time.Time { return time.Now().UTC() }

// wrapNotFound converts a repository miss into the typed service error.
func wrapNotFound(err error, resource string, id interface{}) error {
	if repositories.IsNotFoundError(err) {
		return NewNotFoundError(resource, id)
	}
	return err
}

func jsonField(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func jsonUnmarshal(j datatypes.JSON, dest interface{}) error {
	return json.Unmarshal(j, dest)
}

func stringsFromJSON(j datatypes.JSON) []string {
	if len(j) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(j, &out); err != nil {
		return nil
	}
	return out
}

// publishAudit emits an audit event best-effort. Audit failures are
// logged and never fail the request that triggered them.
func publishAudit(logger *slog.Logger, pub events.EventPublisher, event events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(events.TopicAudit, event); err != nil {
		logger.Warn("failed to publish audit event", "event_type", event.Type, "error", err)
	}
}
