package dto

import "github.com/noah-isme/timetable-api/internal/models"

// GenerateTimetableRequest instructs the engine to build a timetable for the
// requested batches over a date range.
type GenerateTimetableRequest struct {
	BatchIDs      []string `json:"batch_ids" validate:"required,min=1,dive,required"`
	StartDate     string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	WorkingDays   []string `json:"working_days" validate:"required,min=1,dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime     string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime       string   `json:"end_time" validate:"required,datetime=15:04"`
	BreakDuration int      `json:"break_duration" validate:"min=0"`
}

// AssignmentRecord is one scheduled class in the response.
type AssignmentRecord struct {
	SubjectID   string `json:"subject_id"`
	TeacherID   string `json:"teacher_id"`
	ClassroomID string `json:"classroom_id"`
	Date        string `json:"date"`
	Day         string `json:"day"`
	Start       string `json:"start_time"`
	End         string `json:"end_time"`
}

// BatchDaySchedule groups a batch's assignments for one calendar day.
type BatchDaySchedule struct {
	Date        string             `json:"date"`
	Day         string             `json:"day"`
	Assignments []AssignmentRecord `json:"assignments"`
}

// UnresolvedRequirement reports one class instance that could not be placed.
type UnresolvedRequirement struct {
	BatchID   string `json:"batch_id"`
	SubjectID string `json:"subject_id"`
	Reason    string `json:"reason_code"`
}

// GenerateTimetableResponse is the full generation result. Every requirement
// is accounted for: placed assignments plus unresolved entries.
type GenerateTimetableResponse struct {
	Success    bool                          `json:"success"`
	Message    string                        `json:"message"`
	Timetable  map[string][]BatchDaySchedule `json:"timetable"`
	Unresolved []UnresolvedRequirement       `json:"unresolved"`
}

// ExportTimetableRequest enqueues an asynchronous timetable export.
type ExportTimetableRequest struct {
	Format     models.ExportFormat      `json:"format" validate:"required,oneof=csv pdf"`
	Generation GenerateTimetableRequest `json:"generation" validate:"required"`
}

// ExportJobResponse reports the queued job state.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse includes the signed download URL once finished.
type ExportStatusResponse struct {
	ID           string              `json:"id"`
	Status       models.ExportStatus `json:"status"`
	Progress     int                 `json:"progress"`
	DownloadURL  *string             `json:"download_url,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
}
