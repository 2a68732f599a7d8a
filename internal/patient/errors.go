package patient

import "errors"

var (
	ErrMissingOrganization = errors.New("organization information not found in token")
	ErrSchemaNotFound      = errors.New("organization schema not found")
)
