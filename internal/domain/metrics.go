package domain

// MetricsRecord is written once per speak request.
type MetricsRecord struct {
	ID                  string  `dynamodbav:"id"`
	InstanceID          string  `dynamodbav:"instanceId"`
	LocationRequestTime int64   `dynamodbav:"locationRequestTime"`
	Latitude            float64 `dynamodbav:"latitude"`
	Longitude           float64 `dynamodbav:"longitude"`
	Locality            *string `dynamodbav:"locality,omitempty"`
	StateName           *string `dynamodbav:"stateName,omitempty"`
	Voice               string  `dynamodbav:"voice"`
	Filename            *string `dynamodbav:"filename,omitempty"`
	CacheHit            *bool   `dynamodbav:"cacheHit,omitempty"`
	LocationMiss        bool    `dynamodbav:"locationMiss"`
}
