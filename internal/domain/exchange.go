package domain

// Exchange is a single logged message/reply pair handled by the reply service.
type Exchange struct {
	PK        string
	SK        string
	RequestID string
	Message   string
	Reply     string
	Model     string
	CreatedAt string
	TTL       int64
}
