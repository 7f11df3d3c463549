package model

import "time"

// Status is the pipeline stage of a job application.
type Status string

const (
	StatusWishlist    Status = "wishlist"
	StatusApplied     Status = "applied"
	StatusPhoneScreen Status = "phone_screen"
	StatusInterview   Status = "interview"
	StatusOffer       Status = "offer"
	StatusRejected    Status = "rejected"
	StatusWithdrawn   Status = "withdrawn"
	StatusAccepted    Status = "accepted"
)

// Statuses lists every valid Status in pipeline order.
var Statuses = []Status{
	StatusWishlist, StatusApplied, StatusPhoneScreen, StatusInterview,
	StatusOffer, StatusRejected, StatusWithdrawn, StatusAccepted,
}

// Valid reports whether s belongs to the closed status set.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// JobType is the employment type of a job application.
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeFreelance  JobType = "freelance"
)

// JobTypes lists every valid JobType.
var JobTypes = []JobType{
	JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship, JobTypeFreelance,
}

// Valid reports whether t belongs to the closed job type set.
func (t JobType) Valid() bool {
	for _, v := range JobTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Job is a single tracked job application.
//
// Optional columns are pointers: nil is stored as NULL and rendered as JSON
// null, so "not set" never turns into an empty string or a zero salary.
// AppliedDate and Deadline are calendar dates in YYYY-MM-DD form.
type Job struct {
	ID          int64     `json:"id"           db:"id"`
	UserID      int64     `json:"user_id"      db:"user_id"`
	Company     string    `json:"company"      db:"company"`
	Position    string    `json:"position"     db:"position"`
	Status      Status    `json:"status"       db:"status"`
	JobType     JobType   `json:"job_type"     db:"job_type"`
	Location    *string   `json:"location"     db:"location"`
	SalaryMin   *int64    `json:"salary_min"   db:"salary_min"`
	SalaryMax   *int64    `json:"salary_max"   db:"salary_max"`
	URL         *string   `json:"url"          db:"url"`
	Notes       *string   `json:"notes"        db:"notes"`
	AppliedDate *string   `json:"applied_date" db:"applied_date"`
	Deadline    *string   `json:"deadline"     db:"deadline"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"   db:"updated_at"`
}

// GetUserID returns the owning user. It lets the ownership guard treat any
// owned record uniformly.
func (j *Job) GetUserID() int64 { return j.UserID }

// JobFields carries the user-supplied columns of a job for create and
// update. A nil pointer means "not supplied": create stores NULL (or the
// column default for Status and JobType), update leaves the stored value
// unchanged.
type JobFields struct {
	Company     *string  `json:"company"`
	Position    *string  `json:"position"`
	Status      *Status  `json:"status"`
	JobType     *JobType `json:"job_type"`
	Location    *string  `json:"location"`
	SalaryMin   *int64   `json:"salary_min"`
	SalaryMax   *int64   `json:"salary_max"`
	URL         *string  `json:"url"`
	Notes       *string  `json:"notes"`
	AppliedDate *string  `json:"applied_date"`
	Deadline    *string  `json:"deadline"`
}
