package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reward-ledger/logger"
	"reward-ledger/models"
)

// RemoteProfile is the subset of the profile service payload the reward
// service mirrors.
type RemoteProfile struct {
	ExternalID    string    `json:"external_id"`
	Username      string    `json:"username"`
	AccountStatus string    `json:"account_status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type profileChanges struct {
	Users []RemoteProfile `json:"users"`
}

type SyncReport struct {
	Received int
	Upserted int
	Skipped  int
	Failed   int
}

// UserSyncWorker mirrors profile-service accounts into the users table. It only
// ever writes identity columns; reward fields on existing rows are untouched.
type UserSyncWorker struct {
	db           *gorm.DB
	log          *logger.Logger
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client

	mu     sync.Mutex
	cursor time.Time
}

func NewUserSyncWorker(db *gorm.DB, log *logger.Logger, baseURL, endpointPath, serviceToken string) *UserSyncWorker {
	return &UserSyncWorker{
		db:           db,
		log:          log.With("worker", "UserSyncWorker"),
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Sync runs one incremental pass. The cursor is the newest remote updated_at
// seen so far; users.updated_at cannot serve because reward writes bump it.
func (w *UserSyncWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	report, latest, err := w.syncSince(ctx, w.cursor)
	if err != nil {
		return err
	}
	// Failed rows are retried on the next pass.
	if report.Failed == 0 && latest.After(w.cursor) {
		w.cursor = latest
	}
	if report.Received > 0 {
		w.log.Info("user sync complete", "received", report.Received, "upserted", report.Upserted, "skipped", report.Skipped, "failed", report.Failed, "cursor", w.cursor.Format(time.RFC3339))
	}
	return nil
}

func (w *UserSyncWorker) syncSince(ctx context.Context, since time.Time) (SyncReport, time.Time, error) {
	var report SyncReport
	latest := since

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return report, latest, fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return report, latest, err
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return report, latest, fmt.Errorf("sync service request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return report, latest, fmt.Errorf("sync service returned %d: %s", resp.StatusCode, string(body))
	}

	var changes profileChanges
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return report, latest, fmt.Errorf("decode sync response: %w", err)
	}

	report.Received = len(changes.Users)
	for _, remote := range changes.Users {
		if remote.UpdatedAt.After(latest) {
			latest = remote.UpdatedAt
		}
		if _, err := uuid.Parse(remote.ExternalID); err != nil {
			report.Skipped++
			w.log.Warn("skipping profile with invalid id", "external_id", remote.ExternalID)
			continue
		}

		user := models.NewUser(remote.ExternalID, remote.Username)
		err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
		}).Create(user).Error
		if err != nil {
			report.Failed++
			w.log.Warn("failed to upsert user", "external_id", remote.ExternalID, "error", err)
			continue
		}
		report.Upserted++
	}
	return report, latest, nil
}
