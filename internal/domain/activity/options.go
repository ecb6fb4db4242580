package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	GroupID      int64
	DailyID      *string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
