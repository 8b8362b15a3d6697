package export

import "github.com/margalk/catms/internal/currency"

// Default is the registry of the six clinic data categories.
var Default = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(appointmentsDataset)
	r.Register(invoicesDataset)
	r.Register(auditLogsDataset)
	r.Register(patientsDataset)
	r.Register(usersDataset)
	r.Register(paymentsDataset)
	return r
}

var appointmentsDataset = Dataset{
	Type:     Appointments,
	Name:     "Appointments",
	Endpoint: "appointments",
	Columns:  []string{"Appointment ID", "Patient", "Doctor", "Specialization", "Date", "Time", "Status", "Reason"},
	Project: func(f Formatter, r Record) []string {
		return []string{
			f.Text(r, "appointment_id"),
			f.Text(r, "Patient.full_name"),
			f.Text(r, "Doctor.full_name"),
			f.Text(r, "Doctor.specialization"),
			f.Date(r, "appointment_date"),
			f.Text(r, "appointment_time"),
			f.Text(r, "status"),
			f.Text(r, "reason"),
		}
	},
}

var invoicesDataset = Dataset{
	Type:     Invoices,
	Name:     "Invoices",
	Endpoint: "invoices",
	Columns:  []string{"Invoice ID", "Patient", "Invoice Date", "Due Date", "Total Amount", "Paid Amount", "Balance", "Status"},
	Project: func(f Formatter, r Record) []string {
		total := f.Amount(r, "total_amount")
		paid := f.Amount(r, "paid_amount")
		return []string{
			f.Text(r, "invoice_id"),
			f.Text(r, "Patient.full_name"),
			f.Date(r, "invoice_date"),
			f.Date(r, "due_date"),
			currency.Format(total),
			currency.Format(paid),
			currency.Format(currency.Round(total - paid)),
			f.Text(r, "status"),
		}
	},
}

var auditLogsDataset = Dataset{
	Type:     AuditLogs,
	Name:     "Audit Logs",
	Endpoint: "audit-logs",
	Columns:  []string{"Log ID", "User", "Role", "Action", "Entity", "Entity ID", "Details", "Date"},
	Project: func(f Formatter, r Record) []string {
		return []string{
			f.Text(r, "log_id"),
			f.Text(r, "User.full_name"),
			f.Text(r, "User.role"),
			f.Text(r, "action"),
			f.Text(r, "entity_type"),
			f.Text(r, "entity_id"),
			f.Text(r, "details"),
			f.Date(r, "created_at"),
		}
	},
}

var patientsDataset = Dataset{
	Type:     Patients,
	Name:     "Patients",
	Endpoint: "patients",
	Columns:  []string{"Patient ID", "Full Name", "Date of Birth", "Gender", "Phone", "Email", "Address", "Registered"},
	Project: func(f Formatter, r Record) []string {
		return []string{
			f.Text(r, "patient_id"),
			f.Text(r, "full_name"),
			f.Date(r, "date_of_birth"),
			f.Text(r, "gender"),
			f.Text(r, "phone"),
			f.Text(r, "email"),
			f.Text(r, "address"),
			f.Date(r, "created_at"),
		}
	},
}

var usersDataset = Dataset{
	Type:     Users,
	Name:     "Users",
	Endpoint: "users",
	Columns:  []string{"User ID", "Full Name", "Username", "Email", "Role", "Branch", "Status", "Created"},
	Project: func(f Formatter, r Record) []string {
		return []string{
			f.Text(r, "user_id"),
			f.Text(r, "full_name"),
			f.Text(r, "username"),
			f.Text(r, "email"),
			f.Text(r, "role"),
			f.Text(r, "Branch.name"),
			f.Flag(r, "is_active", "Active", "Inactive"),
			f.Date(r, "created_at"),
		}
	},
}

var paymentsDataset = Dataset{
	Type:     Payments,
	Name:     "Payments",
	Endpoint: "payments",
	Columns:  []string{"Payment ID", "Invoice ID", "Patient", "Amount", "Method", "Payment Date", "Reference"},
	Project: func(f Formatter, r Record) []string {
		return []string{
			f.Text(r, "payment_id"),
			f.Text(r, "invoice_id"),
			f.Text(r, "Patient.full_name"),
			f.Money(r, "amount"),
			f.Text(r, "payment_method"),
			f.Date(r, "payment_date"),
			f.Text(r, "reference_number"),
		}
	},
}
