package models

// Stats - сводные счетчики конвейера корреляции
type Stats struct {
	UncategorizedReports int `json:"uncategorized_reports"`
	LinkedReports        int `json:"linked_reports"`
	RejectedReports      int `json:"rejected_reports"`
	OpenIncidents        int `json:"open_incidents"`
}
