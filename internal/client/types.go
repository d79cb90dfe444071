package client

type SiteRef struct {
	ID     int64  `json:"id" yaml:"id"`
	Domain string `json:"domain" yaml:"domain"`
}

type Script struct {
	ID            int64     `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Content       string    `json:"content" yaml:"content"`
	CreatedAt     string    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt     string    `json:"updatedAt" yaml:"updatedAt"`
	AssignedSites []SiteRef `json:"assignedSites" yaml:"assignedSites"`
}

type ScriptsResponse struct {
	Scripts []Script `json:"scripts" yaml:"scripts"`
}

type Site struct {
	ID        int64  `json:"id" yaml:"id"`
	Domain    string `json:"domain" yaml:"domain"`
	Wildcard  bool   `json:"wildcard" yaml:"wildcard"`
	CreatedAt string `json:"createdAt" yaml:"createdAt"`
}

type SitesResponse struct {
	Sites []Site `json:"sites" yaml:"sites"`
}

type StatsBucket struct {
	Hour  string `json:"hour" yaml:"hour"`
	Count int64  `json:"count" yaml:"count"`
}

type ScriptStats struct {
	ScriptID int64         `json:"scriptId" yaml:"scriptId"`
	Total24h int64         `json:"total24h" yaml:"total24h"`
	Hourly   []StatsBucket `json:"hourly" yaml:"hourly"`
}

type LoginResponse struct {
	Username string `json:"username" yaml:"username"`
	Token    string `json:"token" yaml:"token"`
}
