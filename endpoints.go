package client

const (
	// Base URLs
	ProductionURL  = "https://api.rentdynamics.com"
	DevelopmentURL = "https://api-dev.rentdynamics.com"

	// Auth
	EndpointLogin  = "/auth/login"
	EndpointLogout = "/auth/logout"
)
