package prompt

import (
	"fmt"
	"strings"
)

// ReportHeadings are the sections the model is asked to produce, in order.
var ReportHeadings = []string{
	"Imaging modality identification",
	"Anatomical structures visualized",
	"Abnormal findings description",
	"Differential diagnoses",
	"Clinical correlation recommendations",
}

// GetUserPrompt returns the fixed instruction sent alongside every image.
func GetUserPrompt() string {
	var b strings.Builder
	b.WriteString("As an AI radiologist, provide a detailed structured report including:")
	for i, h := range ReportHeadings {
		fmt.Fprintf(&b, "\n%d. %s", i+1, h)
	}
	return b.String()
}
