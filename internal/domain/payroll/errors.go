package payroll

import "errors"

var (
	ErrPayrollRecordNotFound  = errors.New("payroll record not found")
	ErrDuplicatePayrollRecord = errors.New("payroll record already exists for this employee and period")
	ErrPayrollRecordLocked    = errors.New("payroll record is locked by its workflow status")
	ErrTaxPolicyNotFound      = errors.New("tax policy not found")
	ErrInvalidPeriod          = errors.New("invalid payroll period")
	ErrInvalidCalendar        = errors.New("standard monthly hours must be positive")
	ErrCompensationNotFound   = errors.New("employee has no compensation terms configured")
	ErrCannotDeletePaidRecord = errors.New("cannot delete paid payroll record")
	ErrCompanyIDRequired      = errors.New("company_id claim is missing or invalid")
)
