package fixtures

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/timesheet"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// ==========================================
// FILE FORMAT
// ==========================================

// File is the on-disk layout of a fixtures document
type File struct {
	Companies []Company `yaml:"companies"`
}

type Company struct {
	ID        string     `yaml:"id"`
	TaxPolicy *TaxPolicy `yaml:"taxPolicy"`
	Employees []Employee `yaml:"employees"`
}

// TaxPolicy overlays the statutory defaults; omitted fields keep the default
type TaxPolicy struct {
	PersonalIncomeTaxRate           string `yaml:"personalIncomeTaxRate"`
	MilitaryTaxRate                 string `yaml:"militaryTaxRate"`
	EmployerPensionContributionRate string `yaml:"employerPensionContributionRate"`
	EmployeePensionContributionRate string `yaml:"employeePensionContributionRate"`
	MinimumWage                     string `yaml:"minimumWage"`
	TaxFreeMinimum                  string `yaml:"taxFreeMinimum"`
}

type Employee struct {
	ID           string         `yaml:"id"`
	Code         string         `yaml:"code"`
	FullName     string         `yaml:"fullName"`
	Status       string         `yaml:"status"`
	DepartmentID string         `yaml:"departmentId"`
	BaseSalary   string         `yaml:"baseSalary"` // empty = no compensation terms
	HireDate     string         `yaml:"hireDate"`
	Timesheet    []TimesheetDay `yaml:"timesheet"`
}

type TimesheetDay struct {
	Date     string `yaml:"date"`
	Code     string `yaml:"code"`
	Hours    string `yaml:"hours"`
	Overtime string `yaml:"overtime"`
	Night    string `yaml:"night"`
	Evening  string `yaml:"evening"`
}

// ==========================================
// SEEDED DATA
// ==========================================

// Data is a parsed fixtures document, ready to be written into repositories
type Data struct {
	Employees []employee.Employee
	Days      []timesheet.Day
	Policies  []payroll.TaxPolicy
}

type EmployeeSink interface {
	Put(employees ...employee.Employee)
}

type TimesheetSink interface {
	Add(days ...timesheet.Day)
}

// LoadFile reads and parses a YAML fixtures document.
func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Data, error) {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}

	data := &Data{}
	for _, c := range file.Companies {
		if c.ID == "" {
			return nil, errors.New("company without id")
		}

		if c.TaxPolicy != nil {
			policy, err := c.TaxPolicy.toDomain(c.ID)
			if err != nil {
				return nil, fmt.Errorf("company %s: %w", c.ID, err)
			}
			data.Policies = append(data.Policies, policy)
		}

		for _, e := range c.Employees {
			emp, days, err := e.toDomain(c.ID)
			if err != nil {
				return nil, fmt.Errorf("company %s employee %s: %w", c.ID, e.ID, err)
			}
			data.Employees = append(data.Employees, emp)
			data.Days = append(data.Days, days...)
		}
	}
	return data, nil
}

// Seed writes the parsed data into the given repositories
func (d *Data) Seed(ctx context.Context, employees EmployeeSink, timesheets TimesheetSink, policies payroll.TaxPolicyRepository) error {
	employees.Put(d.Employees...)
	timesheets.Add(d.Days...)

	for _, p := range d.Policies {
		if _, err := policies.Upsert(ctx, p); err != nil {
			return fmt.Errorf("failed to seed tax policy for %s: %w", p.CompanyID, err)
		}
	}
	return nil
}

// ==========================================
// CONVERSION
// ==========================================

func (p TaxPolicy) toDomain(companyID string) (payroll.TaxPolicy, error) {
	policy := payroll.DefaultTaxPolicy()
	policy.CompanyID = companyID

	fields := []struct {
		name   string
		raw    string
		target *decimal.Decimal
	}{
		{"personalIncomeTaxRate", p.PersonalIncomeTaxRate, &policy.PersonalIncomeTaxRate},
		{"militaryTaxRate", p.MilitaryTaxRate, &policy.MilitaryTaxRate},
		{"employerPensionContributionRate", p.EmployerPensionContributionRate, &policy.EmployerPensionContributionRate},
		{"employeePensionContributionRate", p.EmployeePensionContributionRate, &policy.EmployeePensionContributionRate},
		{"minimumWage", p.MinimumWage, &policy.MinimumWage},
		{"taxFreeMinimum", p.TaxFreeMinimum, &policy.TaxFreeMinimum},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return payroll.TaxPolicy{}, fmt.Errorf("invalid %s %q: %w", f.name, f.raw, err)
		}
		*f.target = v
	}

	if err := policy.Validate(); err != nil {
		return payroll.TaxPolicy{}, err
	}
	return policy, nil
}

func (e Employee) toDomain(companyID string) (employee.Employee, []timesheet.Day, error) {
	if e.ID == "" {
		return employee.Employee{}, nil, errors.New("id is required")
	}

	emp := employee.Employee{
		ID:               e.ID,
		CompanyID:        companyID,
		EmployeeCode:     e.Code,
		FullName:         e.FullName,
		EmploymentStatus: employee.EmploymentStatusActive,
	}
	if e.Status != "" {
		emp.EmploymentStatus = employee.EmploymentStatus(e.Status)
	}
	if e.DepartmentID != "" {
		dept := e.DepartmentID
		emp.DepartmentID = &dept
	}
	if e.BaseSalary != "" {
		salary, err := decimal.NewFromString(e.BaseSalary)
		if err != nil {
			return employee.Employee{}, nil, fmt.Errorf("invalid baseSalary %q: %w", e.BaseSalary, err)
		}
		emp.BaseSalary = &salary
	}
	if e.HireDate != "" {
		hired, err := time.Parse(dateLayout, e.HireDate)
		if err != nil {
			return employee.Employee{}, nil, fmt.Errorf("invalid hireDate %q: %w", e.HireDate, err)
		}
		emp.HireDate = hired
	}

	days := make([]timesheet.Day, 0, len(e.Timesheet))
	for _, td := range e.Timesheet {
		day, err := td.toDomain(companyID, e.ID)
		if err != nil {
			return employee.Employee{}, nil, err
		}
		days = append(days, day)
	}
	return emp, days, nil
}

func (td TimesheetDay) toDomain(companyID, employeeID string) (timesheet.Day, error) {
	date, err := time.Parse(dateLayout, td.Date)
	if err != nil {
		return timesheet.Day{}, fmt.Errorf("invalid timesheet date %q: %w", td.Date, err)
	}

	code := timesheet.DayCodeWork
	if td.Code != "" {
		code = timesheet.DayCode(td.Code)
	}

	day := timesheet.Day{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Year:       date.Year(),
		Month:      int(date.Month()),
		Day:        date.Day(),
		Code:       code,
	}

	amounts := []struct {
		raw    string
		target *decimal.Decimal
	}{
		{td.Hours, &day.Hours},
		{td.Overtime, &day.OvertimeHours},
		{td.Night, &day.NightHours},
		{td.Evening, &day.EveningHours},
	}
	for _, a := range amounts {
		if a.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(a.raw)
		if err != nil {
			return timesheet.Day{}, fmt.Errorf("invalid hours %q on %s: %w", a.raw, td.Date, err)
		}
		if v.IsNegative() {
			return timesheet.Day{}, fmt.Errorf("negative hours on %s", td.Date)
		}
		*a.target = v
	}
	return day, nil
}
