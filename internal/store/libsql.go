package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Workflows ---

func (s *LibSQLStore) CreateWorkflow(ctx context.Context, wf *schema.Workflow) error {
	trigger, err := json.Marshal(wf.Trigger)
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}
	nodes, err := json.Marshal(wf.Nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	conns, err := json.Marshal(wf.Connections)
	if err != nil {
		return fmt.Errorf("marshal connections: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workflows (id, tenant_id, name, trigger, is_active, nodes, connections, execution_count, last_executed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.TenantID, wf.Name, string(trigger), boolInt(wf.IsActive),
		string(nodes), string(conns), wf.ExecutionCount, nullTime(wf.LastExecuted),
		timeOrNow(wf.CreatedAt), timeOrNow(wf.UpdatedAt),
	)
	return err
}

func (s *LibSQLStore) GetWorkflow(ctx context.Context, id string) (*schema.Workflow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, trigger, is_active, nodes, connections, execution_count, last_executed_at, created_at, updated_at
		 FROM workflows WHERE id = ?`, id,
	)
	wf, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("workflow", id)
	}
	return wf, err
}

func (s *LibSQLStore) ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]*schema.Workflow, error) {
	var where []string
	var args []any

	if filter.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.TriggerType != "" {
		where = append(where, "json_extract(trigger, '$.type') = ?")
		args = append(args, filter.TriggerType)
	}
	if filter.ActiveOnly {
		where = append(where, "is_active = 1")
	}

	query := `SELECT id, tenant_id, name, trigger, is_active, nodes, connections, execution_count, last_executed_at, created_at, updated_at FROM workflows`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*schema.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

func (s *LibSQLStore) SetWorkflowActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE workflows SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolInt(active), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "workflow", id)
}

func (s *LibSQLStore) DeleteWorkflow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "workflow", id)
}

// BumpWorkflowRun increments the run counter and stamps the last run time.
// Called after every terminal execution regardless of outcome.
func (s *LibSQLStore) BumpWorkflowRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE workflows SET execution_count = execution_count + 1, last_executed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "workflow", id)
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*schema.Workflow, error) {
	wf := &schema.Workflow{}
	var (
		triggerJSON, nodesJSON, connsJSON string
		isActive                          int
		lastExecuted                      sql.NullTime
	)
	err := row.Scan(&wf.ID, &wf.TenantID, &wf.Name, &triggerJSON, &isActive,
		&nodesJSON, &connsJSON, &wf.ExecutionCount, &lastExecuted, &wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return nil, err
	}
	wf.IsActive = isActive != 0
	if err := json.Unmarshal([]byte(triggerJSON), &wf.Trigger); err != nil {
		return nil, fmt.Errorf("unmarshal trigger: %w", err)
	}
	if err := json.Unmarshal([]byte(nodesJSON), &wf.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal([]byte(connsJSON), &wf.Connections); err != nil {
		return nil, fmt.Errorf("unmarshal connections: %w", err)
	}
	if lastExecuted.Valid {
		wf.LastExecuted = &lastExecuted.Time
	}
	return wf, nil
}

// --- Executions ---

func (s *LibSQLStore) CreateExecution(ctx context.Context, exec *Execution) error {
	payload, err := marshalMapOrDefault(exec.Payload)
	if err != nil {
		return fmt.Errorf("marshal trigger_payload: %w", err)
	}
	logJSON, err := marshalLog(exec.Log)
	if err != nil {
		return fmt.Errorf("marshal execution_log: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workflow_executions (id, workflow_id, tenant_id, status, trigger_payload, execution_log, error, started_at, completed_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.WorkflowID, exec.TenantID, string(exec.Status),
		string(payload), logJSON, nullStr(exec.Error),
		timeOrNow(exec.StartedAt), nullTime(exec.CompletedAt), exec.DurationMs,
	)
	return err
}

func (s *LibSQLStore) UpdateExecution(ctx context.Context, id string, update ExecutionUpdate) error {
	var sets []string
	var args []any

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.Log != nil {
		logJSON, err := marshalLog(update.Log)
		if err != nil {
			return fmt.Errorf("marshal execution_log: %w", err)
		}
		sets = append(sets, "execution_log = ?")
		args = append(args, logJSON)
	}
	if update.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, *update.Error)
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *update.CompletedAt)
	}
	if update.DurationMs != nil {
		sets = append(sets, "duration_ms = ?")
		args = append(args, *update.DurationMs)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE workflow_executions SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "execution", id)
}

func (s *LibSQLStore) GetExecution(ctx context.Context, id string) (*Execution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workflow_id, tenant_id, status, trigger_payload, execution_log, error, started_at, completed_at, duration_ms
		 FROM workflow_executions WHERE id = ?`, id,
	)
	exec, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("execution", id)
	}
	return exec, err
}

func (s *LibSQLStore) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*Execution, error) {
	var where []string
	var args []any

	if filter.WorkflowID != "" {
		where = append(where, "workflow_id = ?")
		args = append(args, filter.WorkflowID)
	}
	if filter.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Since != nil {
		where = append(where, "started_at >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT id, workflow_id, tenant_id, status, trigger_payload, execution_log, error, started_at, completed_at, duration_ms FROM workflow_executions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var execs []*Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}
	return execs, rows.Err()
}

func scanExecution(row rowScanner) (*Execution, error) {
	e := &Execution{}
	var (
		status              string
		payloadJSON, logJSON string
		errStr              sql.NullString
		completedAt         sql.NullTime
	)
	err := row.Scan(&e.ID, &e.WorkflowID, &e.TenantID, &status, &payloadJSON, &logJSON,
		&errStr, &e.StartedAt, &completedAt, &e.DurationMs)
	if err != nil {
		return nil, err
	}
	e.Status = schema.ExecutionStatus(status)
	if payloadJSON != "" {
		_ = json.Unmarshal([]byte(payloadJSON), &e.Payload)
	}
	if err := json.Unmarshal([]byte(logJSON), &e.Log); err != nil {
		return nil, fmt.Errorf("unmarshal execution_log: %w", err)
	}
	e.Error = errStr.String
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	return e, nil
}

// --- CRM records ---

func (s *LibSQLStore) InsertRecord(ctx context.Context, rec *Record) error {
	data, err := marshalMapOrDefault(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal record data: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crm_records (id, tenant_id, entity, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TenantID, rec.Entity, string(data),
		timeOrNow(rec.CreatedAt), timeOrNow(rec.UpdatedAt),
	)
	return err
}

func (s *LibSQLStore) GetRecord(ctx context.Context, tenantID, entity, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, entity, data, created_at, updated_at
		 FROM crm_records WHERE tenant_id = ? AND entity = ? AND id = ?`,
		tenantID, entity, id,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound(entity, id)
	}
	return rec, err
}

// FindRecord looks up the oldest record whose given data field equals value.
// The field name is injected as a JSON path argument, never spliced into SQL.
func (s *LibSQLStore) FindRecord(ctx context.Context, tenantID, entity, field, value string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, entity, data, created_at, updated_at
		 FROM crm_records
		 WHERE tenant_id = ? AND entity = ? AND json_extract(data, ?) = ?
		 ORDER BY created_at ASC LIMIT 1`,
		tenantID, entity, "$."+field, value,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound(entity, field+"="+value)
	}
	return rec, err
}

// UpdateRecord merges fields into the record's data and returns the result.
// Read-merge-write inside a transaction; last writer wins per field.
func (s *LibSQLStore) UpdateRecord(ctx context.Context, tenantID, entity, id string, fields map[string]any) (*Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, tenant_id, entity, data, created_at, updated_at
		 FROM crm_records WHERE tenant_id = ? AND entity = ? AND id = ?`,
		tenantID, entity, id,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound(entity, id)
	}
	if err != nil {
		return nil, err
	}

	if rec.Data == nil {
		rec.Data = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		rec.Data[k] = v
	}

	data, err := json.Marshal(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal record data: %w", err)
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE crm_records SET data = ?, updated_at = ? WHERE tenant_id = ? AND entity = ? AND id = ?`,
		string(data), now, tenantID, entity, id,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record update: %w", err)
	}
	rec.UpdatedAt = now
	return rec, nil
}

func scanRecord(row rowScanner) (*Record, error) {
	rec := &Record{}
	var dataJSON string
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.Entity, &dataJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dataJSON), &rec.Data); err != nil {
		return nil, fmt.Errorf("unmarshal record data: %w", err)
	}
	return rec, nil
}

// --- Queue jobs ---

func (s *LibSQLStore) CreateJob(ctx context.Context, job *Job) error {
	payload, err := marshalMapOrDefault(job.Payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}
	status := job.Status
	if status == "" {
		status = JobQueued
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO queue_jobs (id, workflow_id, tenant_id, payload, status, execution_id, created_at, delivered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.WorkflowID, job.TenantID, string(payload), status,
		nullStr(job.ExecutionID), timeOrNow(job.CreatedAt), nullTime(job.DeliveredAt),
	)
	return err
}

func (s *LibSQLStore) MarkJobDelivered(ctx context.Context, id, executionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queue_jobs SET status = ?, execution_id = ?, delivered_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		JobDelivered, executionID, id, JobQueued,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "job", id)
}

func (s *LibSQLStore) MarkJobFailed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queue_jobs SET status = ?, delivered_at = CURRENT_TIMESTAMP WHERE id = ?`,
		JobFailed, id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "job", id)
}

func (s *LibSQLStore) ListQueuedJobs(ctx context.Context, limit int) ([]*Job, error) {
	query := `SELECT id, workflow_id, tenant_id, payload, status, execution_id, created_at, delivered_at
	          FROM queue_jobs WHERE status = ? ORDER BY created_at ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, JobQueued)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j := &Job{}
		var payloadJSON string
		var executionID sql.NullString
		var deliveredAt sql.NullTime
		if err := rows.Scan(&j.ID, &j.WorkflowID, &j.TenantID, &payloadJSON, &j.Status,
			&executionID, &j.CreatedAt, &deliveredAt); err != nil {
			return nil, err
		}
		if payloadJSON != "" {
			_ = json.Unmarshal([]byte(payloadJSON), &j.Payload)
		}
		j.ExecutionID = executionID.String
		if deliveredAt.Valid {
			j.DeliveredAt = &deliveredAt.Time
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.EngineError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func marshalMapOrDefault(m map[string]any) (json.RawMessage, error) {
	if len(m) == 0 {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(m)
}

// marshalLog keeps an empty log as [] rather than null so the stored
// execution_log column is always a JSON array.
func marshalLog(log []schema.ExecutionLogEntry) (string, error) {
	if len(log) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(log)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ Store = (*LibSQLStore)(nil)
