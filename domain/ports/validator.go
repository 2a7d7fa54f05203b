package ports

// StructValidator validates a struct carrying `validate` tags.
type StructValidator interface {
	ValidateStruct(v any) error
}
