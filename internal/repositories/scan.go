package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"railticket/internal/domain/models"
	"railticket/internal/utils"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func stationColumns(alias string) string {
	return fmt.Sprintf("%[1]s.id, %[1]s.name, %[1]s.latitude, %[1]s.longitude, %[1]s.station_order", alias)
}

func stationDest(s *models.Station) []any {
	return []any{&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.Order}
}

func nullableTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := utils.DecodeTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return utils.EncodeTime(*t)
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func encodeNullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
