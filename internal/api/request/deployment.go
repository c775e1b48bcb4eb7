package request

// SubmitDeployment is the body of POST /deploy.
type SubmitDeployment struct {
	SourceRef string `json:"source_ref" validate:"required,url"`
}
