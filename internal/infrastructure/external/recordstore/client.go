// Package recordstore implements the External Sync (C8) record-store
// client against an Airtable-shaped REST API: WorkQueue_NN tables holding
// one row per Assignment, schema {profile_id, username, display_name,
// platform, position, campaign_date, state}.
//
// Grounded on the original's utils/airtable_creator.py (table
// provisioning, duplicate-name-is-skip semantics, ~4req/s pacing via
// time.sleep(0.25)) and clear_airtable_data.py (batch-of-10 delete
// pacing). Table naming is spec.md's redesigned WorkQueue_{:02d}, not the
// original's Daily_Outreach_Table_{:02d}. Retry/backoff across chunk
// pushes is the caller's responsibility (application/service's
// pushChunkWithBackoff); this client makes a single attempt per call, the
// same division of labor as the teacher's kratos.Client.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

// deleteChunkSize matches clear_airtable_data.py's delete_records_in_batches.
const deleteChunkSize = 10

// provisionPaceInterval mirrors the original's time.sleep(0.25) between
// table-creation calls (~4 req/s, under Airtable's ~5 req/s ceiling).
const provisionPaceInterval = 250 * time.Millisecond

var queueTablePattern = regexp.MustCompile(`^WorkQueue_(\d{2})$`)

// Client implements domainservice.RecordStore.
type Client struct {
	httpClient *http.Client
	apiBaseURL string // e.g. https://api.airtable.com/v0
	metaURL    string // e.g. https://api.airtable.com/v0/meta
	apiKey     string
	logger     domainservice.Logger
}

// NewClient builds a record-store client. baseURL is the API root
// (without the /meta suffix); both the record and metadata endpoints are
// derived from it.
func NewClient(httpClient *http.Client, baseURL, apiKey string, logger domainservice.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		apiBaseURL: baseURL,
		metaURL:    baseURL + "/meta",
		apiKey:     apiKey,
		logger:     logger,
	}
}

func queueTableName(index int) string {
	return fmt.Sprintf("WorkQueue_%02d", index)
}

type airtableFields struct {
	ProfileID    string `json:"profile_id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	Platform     string `json:"platform"`
	Position     int    `json:"position"`
	CampaignDate string `json:"campaign_date"`
	State        string `json:"state"`
}

type airtableRecord struct {
	ID     string         `json:"id,omitempty"`
	Fields airtableFields `json:"fields"`
}

type listRecordsResponse struct {
	Records []airtableRecord `json:"records"`
	Offset  string           `json:"offset,omitempty"`
}

// PushChunk submits at most 10 rows as new records in one table.
func (c *Client) PushChunk(ctx context.Context, tenantBaseID string, queueIndex int, rows []domainservice.RecordStoreRow) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]airtableRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, airtableRecord{Fields: fieldsFromRow(r)})
	}

	url := fmt.Sprintf("%s/%s/%s", c.apiBaseURL, tenantBaseID, queueTableName(queueIndex))
	_, err := c.do(ctx, http.MethodPost, url, map[string]any{"records": records})
	return err
}

// ClearTable lists every record in the table and deletes it in chunks of
// deleteChunkSize, the clear-before-push policy spec.md §9 resolves the
// SyncOut idempotency Open Question with.
func (c *Client) ClearTable(ctx context.Context, tenantBaseID string, queueIndex int) error {
	recordIDs, err := c.listRecordIDs(ctx, tenantBaseID, queueIndex)
	if err != nil {
		return err
	}
	return c.deleteRecordIDs(ctx, tenantBaseID, queueIndex, recordIDs)
}

// PullTable fetches every row currently in a queue table. Rows with an
// unparseable platform or state are dropped rather than failing the pull,
// since an operator may leave a field blank mid-edit.
func (c *Client) PullTable(ctx context.Context, tenantBaseID string, queueIndex int) ([]domainservice.RecordStoreRow, error) {
	records, err := c.listRecords(ctx, tenantBaseID, queueIndex)
	if err != nil {
		return nil, err
	}

	rows := make([]domainservice.RecordStoreRow, 0, len(records))
	for _, rec := range records {
		platform, err := valueobject.ParsePlatform(rec.Fields.Platform)
		if err != nil {
			continue
		}
		state, err := valueobject.ParseAssignmentState(rec.Fields.State)
		if err != nil {
			continue
		}
		rows = append(rows, domainservice.RecordStoreRow{
			ProfileID:    rec.Fields.ProfileID,
			Username:     rec.Fields.Username,
			DisplayName:  rec.Fields.DisplayName,
			Platform:     platform,
			Position:     rec.Fields.Position,
			CampaignDate: rec.Fields.CampaignDate,
			State:        state,
		})
	}
	return rows, nil
}

// DeleteRows deletes the records matching the given profile ids, in
// chunks of at most deleteChunkSize.
func (c *Client) DeleteRows(ctx context.Context, tenantBaseID string, queueIndex int, profileIDs []string) error {
	wanted := make(map[string]bool, len(profileIDs))
	for _, id := range profileIDs {
		wanted[id] = true
	}

	records, err := c.listRecords(ctx, tenantBaseID, queueIndex)
	if err != nil {
		return err
	}

	var toDelete []string
	for _, rec := range records {
		if wanted[rec.Fields.ProfileID] {
			toDelete = append(toDelete, rec.ID)
		}
	}
	return c.deleteRecordIDs(ctx, tenantBaseID, queueIndex, toDelete)
}

// CreateBase provisions numQueues WorkQueue_NN tables, pacing requests at
// provisionPaceInterval. A table that already exists is counted as
// skipped, not failed, per the original's duplicate-table handling.
func (c *Client) CreateBase(ctx context.Context, tenantBaseID string, numQueues int) (created, skipped, failed int, err error) {
	for i := 1; i <= numQueues; i++ {
		if i > 1 {
			select {
			case <-time.After(provisionPaceInterval):
			case <-ctx.Done():
				return created, skipped, failed, ctx.Err()
			}
		}

		name := queueTableName(i)
		url := fmt.Sprintf("%s/%s/tables", c.metaURL, tenantBaseID)
		_, callErr := c.do(ctx, http.MethodPost, url, map[string]any{
			"name":   name,
			"fields": workQueueFieldSchema,
		})
		switch {
		case callErr == nil:
			created++
		case isDuplicateTableError(callErr):
			c.logger.Info("queue table already exists, skipping", "tenant_base_id", tenantBaseID, "table", name)
			skipped++
		default:
			c.logger.Error("failed to create queue table", "tenant_base_id", tenantBaseID, "table", name, "error", callErr)
			failed++
		}
	}
	return created, skipped, failed, nil
}

// VerifyBase checks that exactly numQueues WorkQueue_NN tables exist.
func (c *Client) VerifyBase(ctx context.Context, tenantBaseID string, numQueues int) (valid bool, missing, extra []string, err error) {
	existing, err := c.existingQueueIndexes(ctx, tenantBaseID)
	if err != nil {
		return false, nil, nil, err
	}

	want := make(map[int]bool, numQueues)
	for i := 1; i <= numQueues; i++ {
		want[i] = true
	}
	for idx := range existing {
		if want[idx] {
			delete(want, idx)
		} else {
			extra = append(extra, queueTableName(idx))
		}
	}
	for idx := range want {
		missing = append(missing, queueTableName(idx))
	}
	return len(missing) == 0 && len(extra) == 0, missing, extra, nil
}

// CountQueueTables counts existing WorkQueue_NN tables, queue-count
// discovery strategy 2 (spec.md §4.6/§9).
func (c *Client) CountQueueTables(ctx context.Context, tenantBaseID string) (int, error) {
	existing, err := c.existingQueueIndexes(ctx, tenantBaseID)
	if err != nil {
		return 0, err
	}
	return len(existing), nil
}

func (c *Client) existingQueueIndexes(ctx context.Context, tenantBaseID string) (map[int]bool, error) {
	url := fmt.Sprintf("%s/%s/tables", c.metaURL, tenantBaseID)
	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Tables []struct {
			Name string `json:"name"`
		} `json:"tables"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse base schema: %w", err)
	}

	indexes := map[int]bool{}
	for _, t := range resp.Tables {
		m := queueTablePattern.FindStringSubmatch(t.Name)
		if m == nil {
			continue
		}
		var idx int
		fmt.Sscanf(m[1], "%d", &idx)
		indexes[idx] = true
	}
	return indexes, nil
}

func (c *Client) listRecords(ctx context.Context, tenantBaseID string, queueIndex int) ([]airtableRecord, error) {
	var all []airtableRecord
	offset := ""
	for {
		url := fmt.Sprintf("%s/%s/%s", c.apiBaseURL, tenantBaseID, queueTableName(queueIndex))
		if offset != "" {
			url += "?offset=" + offset
		}
		body, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		var page listRecordsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse record page: %w", err)
		}
		all = append(all, page.Records...)
		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}
	return all, nil
}

func (c *Client) listRecordIDs(ctx context.Context, tenantBaseID string, queueIndex int) ([]string, error) {
	records, err := c.listRecords(ctx, tenantBaseID, queueIndex)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids, nil
}

func (c *Client) deleteRecordIDs(ctx context.Context, tenantBaseID string, queueIndex int, recordIDs []string) error {
	for i := 0; i < len(recordIDs); i += deleteChunkSize {
		end := i + deleteChunkSize
		if end > len(recordIDs) {
			end = len(recordIDs)
		}
		chunk := recordIDs[i:end]

		url := fmt.Sprintf("%s/%s/%s?", c.apiBaseURL, tenantBaseID, queueTableName(queueIndex))
		for _, id := range chunk {
			url += "records[]=" + id + "&"
		}
		if _, err := c.do(ctx, http.MethodDelete, url, nil); err != nil {
			return err
		}
	}
	return nil
}

// do issues a single request and returns the response body on success,
// classifying non-2xx responses as errors the caller can inspect.
func (c *Client) do(ctx context.Context, method, url string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("record-store request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("record-store returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func isDuplicateTableError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate_table_name") || strings.Contains(msg, "already exists")
}

func fieldsFromRow(r domainservice.RecordStoreRow) airtableFields {
	return airtableFields{
		ProfileID:    r.ProfileID,
		Username:     r.Username,
		DisplayName:  r.DisplayName,
		Platform:     r.Platform.String(),
		Position:     r.Position,
		CampaignDate: r.CampaignDate,
		State:        r.State.String(),
	}
}

// workQueueFieldSchema is the WorkQueue_NN table schema, spec.md §6.
var workQueueFieldSchema = []map[string]any{
	{"name": "profile_id", "type": "singleLineText"},
	{"name": "username", "type": "singleLineText"},
	{"name": "display_name", "type": "singleLineText"},
	{
		"name": "platform",
		"type": "singleSelect",
		"options": map[string]any{
			"choices": []map[string]string{
				{"name": "instagram"},
				{"name": "threads"},
				{"name": "tiktok"},
				{"name": "x"},
			},
		},
	},
	{"name": "position", "type": "number", "options": map[string]any{"precision": 0}},
	{"name": "campaign_date", "type": "date", "options": map[string]any{"dateFormat": map[string]string{"name": "iso"}}},
	{
		"name": "state",
		"type": "singleSelect",
		"options": map[string]any{
			"choices": []map[string]string{
				{"name": "pending"},
				{"name": "followed"},
				{"name": "unfollow"},
				{"name": "completed"},
			},
		},
	},
}

var _ domainservice.RecordStore = (*Client)(nil)
