package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/margalk/catms/internal/export"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// rowQueries build each data type as one JSON object per row, with related
// records as nested objects that are NULL when the relation is missing.
var rowQueries = map[export.DataType]string{
	export.Appointments: `
SELECT json_build_object(
	'appointment_id', a.appointment_id,
	'appointment_date', a.appointment_date,
	'appointment_time', a.appointment_time,
	'status', a.status,
	'reason', a.reason,
	'Patient', CASE WHEN p.patient_id IS NULL THEN NULL ELSE json_build_object('patient_id', p.patient_id, 'full_name', p.full_name) END,
	'Doctor', CASE WHEN d.doctor_id IS NULL THEN NULL ELSE json_build_object('doctor_id', d.doctor_id, 'full_name', d.full_name, 'specialization', d.specialization) END)
FROM appointments a
LEFT JOIN patients p ON p.patient_id = a.patient_id
LEFT JOIN doctors d ON d.doctor_id = a.doctor_id
ORDER BY a.appointment_date DESC, a.appointment_time DESC`,

	export.Invoices: `
SELECT json_build_object(
	'invoice_id', i.invoice_id,
	'invoice_date', i.invoice_date,
	'due_date', i.due_date,
	'total_amount', i.total_amount,
	'paid_amount', i.paid_amount,
	'status', i.status,
	'Patient', CASE WHEN p.patient_id IS NULL THEN NULL ELSE json_build_object('patient_id', p.patient_id, 'full_name', p.full_name) END)
FROM invoices i
LEFT JOIN patients p ON p.patient_id = i.patient_id
ORDER BY i.invoice_date DESC`,

	export.AuditLogs: `
SELECT json_build_object(
	'log_id', l.log_id,
	'action', l.action,
	'entity_type', l.entity_type,
	'entity_id', l.entity_id,
	'details', l.details,
	'created_at', l.created_at,
	'User', CASE WHEN u.user_id IS NULL THEN NULL ELSE json_build_object('user_id', u.user_id, 'full_name', u.full_name, 'role', u.role) END)
FROM audit_logs l
LEFT JOIN users u ON u.user_id = l.user_id
ORDER BY l.created_at DESC`,

	export.Patients: `
SELECT json_build_object(
	'patient_id', p.patient_id,
	'full_name', p.full_name,
	'date_of_birth', p.date_of_birth,
	'gender', p.gender,
	'phone', p.phone,
	'email', p.email,
	'address', p.address,
	'created_at', p.created_at)
FROM patients p
ORDER BY p.full_name`,

	export.Users: `
SELECT json_build_object(
	'user_id', u.user_id,
	'full_name', u.full_name,
	'username', u.username,
	'email', u.email,
	'role', u.role,
	'is_active', u.is_active,
	'created_at', u.created_at,
	'Branch', CASE WHEN b.branch_id IS NULL THEN NULL ELSE json_build_object('branch_id', b.branch_id, 'name', b.name) END)
FROM users u
LEFT JOIN branches b ON b.branch_id = u.branch_id
ORDER BY u.full_name`,

	export.Payments: `
SELECT json_build_object(
	'payment_id', pm.payment_id,
	'invoice_id', pm.invoice_id,
	'amount', pm.amount,
	'payment_method', pm.payment_method,
	'payment_date', pm.payment_date,
	'reference_number', pm.reference_number,
	'Patient', CASE WHEN p.patient_id IS NULL THEN NULL ELSE json_build_object('patient_id', p.patient_id, 'full_name', p.full_name) END)
FROM payments pm
LEFT JOIN invoices i ON i.invoice_id = pm.invoice_id
LEFT JOIN patients p ON p.patient_id = i.patient_id
ORDER BY pm.payment_date DESC`,
}

// PGFetcher reads rows directly from the clinic database.
type PGFetcher struct {
	db queryable
}

func NewPGFetcher(pool *pgxpool.Pool) *PGFetcher {
	return &PGFetcher{db: pool}
}

func (f *PGFetcher) FetchRows(ctx context.Context, dt export.DataType) ([]export.Record, error) {
	q, ok := rowQueries[dt]
	if !ok {
		return nil, fmt.Errorf("%w: %q", export.ErrUnknownDataType, string(dt))
	}

	rows, err := f.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrUpstream, dt, err)
	}
	defer rows.Close()

	out := []export.Record{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrUpstream, dt, err)
		}
		var rec export.Record
		if err := unmarshalNumbers(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: decode %s row: %v", ErrUpstream, dt, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %v", ErrUpstream, dt, err)
	}
	return out, nil
}
