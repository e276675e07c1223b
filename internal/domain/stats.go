package domain

// DashboardStats - сводка для админ-панели
type DashboardStats struct {
	SessionsByStatus map[string]int `json:"sessions_by_status"`
	UnreadSessions   int            `json:"unread_sessions"`
	StartedLast24h   int            `json:"started_last_24h"`
	ActiveListings   int            `json:"active_listings"`
}
