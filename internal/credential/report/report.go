// Package report aggregates credential records into compliance reporting for
// an organization: point-in-time snapshots, expiring-soon and overdue lists,
// and the periodic sweep that moves lapsed records to their terminal expired
// status.
package report

import (
	"time"

	"safeguard/internal/credential/expiry"
	"safeguard/internal/credential/models"
)

// expiringSoonWindowDays is the reporting window for the expiring-soon list.
const expiringSoonWindowDays = 30

// RecordRef points a report reader at one record without embedding the whole
// aggregate.
type RecordRef struct {
	RecordID   string     `json:"record_id"`
	SubjectID  string     `json:"subject_id"`
	Type       string     `json:"type"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// ComplianceSnapshot is the derived, never-persisted aggregate over a record
// population. Produced on demand; a new snapshot replaces the old one rather
// than mutating it.
type ComplianceSnapshot struct {
	OrgID       string    `json:"org_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`

	Total          int                              `json:"total"`
	ByStatus       map[models.CredentialStatus]int  `json:"by_status"`
	ExpiredCount   int                              `json:"expired_count"`
	ExpiringSoon   int                              `json:"expiring_soon_count"`
	ComplianceRate float64                          `json:"compliance_rate"`

	ExpiringSoonRecords []RecordRef `json:"expiring_soon_records,omitempty"`
	OverdueRecords      []RecordRef `json:"overdue_records,omitempty"`
}

// Summarize folds a record population into a snapshot. Each record counts
// independently; a subject holding several credential types is simply
// several records. The compliance rate is cleared-and-unexpired over total,
// and 0 for an empty population.
func Summarize(records []*models.CredentialRecord, now time.Time) ComplianceSnapshot {
	snapshot := ComplianceSnapshot{
		GeneratedAt: now,
		Total:       len(records),
		ByStatus:    make(map[models.CredentialStatus]int),
	}

	compliant := 0
	for _, record := range records {
		snapshot.ByStatus[record.Status]++

		expired := record.Status == models.StatusExpired || expiry.IsExpired(now, record.ExpiryDate)
		if expired {
			snapshot.ExpiredCount++
			snapshot.OverdueRecords = append(snapshot.OverdueRecords, ref(record))
			continue
		}
		if expiry.IsExpiringSoon(now, record.ExpiryDate, expiringSoonWindowDays) {
			snapshot.ExpiringSoon++
			snapshot.ExpiringSoonRecords = append(snapshot.ExpiringSoonRecords, ref(record))
		}
		if record.Status == models.StatusCleared {
			compliant++
		}
	}

	if snapshot.Total > 0 {
		snapshot.ComplianceRate = float64(compliant) / float64(snapshot.Total)
	}
	return snapshot
}

func ref(record *models.CredentialRecord) RecordRef {
	return RecordRef{
		RecordID:   record.ID.String(),
		SubjectID:  record.SubjectID.String(),
		Type:       record.Type.String(),
		ExpiryDate: record.ExpiryDate,
	}
}
