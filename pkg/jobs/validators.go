package jobs

type CreateJobPayload struct {
	Type      string `json:"type" validate:"required,oneof=scan purge"`
	LibraryID *int   `json:"library_id,omitempty" validate:"omitempty,min=1"`
	VolumeIDs []int  `json:"volume_ids,omitempty" validate:"omitempty,min=1,max=1000,dive,min=1"`
}

type ListJobsQuery struct {
	Limit    int      `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset   int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Statuses []string `query:"statuses" json:"statuses,omitempty" validate:"omitempty,dive,oneof=pending in_progress completed"`
}
