package report

import "time"

// AnalysisID identifier type
type AnalysisID string

// Metadata is the optional study information printed on the report.
type Metadata struct {
	PatientName      string `json:"patient_name,omitempty"`
	PatientID        string `json:"patient_id,omitempty"`
	StudyDate        string `json:"study_date,omitempty"`
	StudyDescription string `json:"study_description,omitempty"`
}

// Section is one titled block of the model output. Title is empty for
// text that precedes the first heading.
type Section struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

// AnalysisResult is the model's interpretation of one uploaded image.
type AnalysisResult struct {
	ID          AnalysisID `json:"id"`
	Text        string     `json:"text"` // raw text from the inference API
	Sections    []Section  `json:"sections"`
	Model       string     `json:"model"`
	ImageName   string     `json:"image_name"`
	ImageFormat string     `json:"image_format"`
	Metadata    Metadata   `json:"metadata"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Document is a rendered, downloadable report.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}
