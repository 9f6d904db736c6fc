package apiclient

// Endpoints is the table of auth endpoint paths, relative to the base URL.
type Endpoints struct {
	Login              string `mapstructure:"login" yaml:"login"`
	Refresh            string `mapstructure:"refresh" yaml:"refresh"`
	Logout             string `mapstructure:"logout" yaml:"logout"`
	RegisterIndividual string `mapstructure:"register_individual" yaml:"register_individual"`
	RegisterCompany    string `mapstructure:"register_company" yaml:"register_company"`
	ForgotPassword     string `mapstructure:"forgot_password" yaml:"forgot_password"`
	Me                 string `mapstructure:"me" yaml:"me"`
}

// DefaultEndpoints returns the standard /api/v1/auth table.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:              "/api/v1/auth/login",
		Refresh:            "/api/v1/auth/refresh",
		Logout:             "/api/v1/auth/logout",
		RegisterIndividual: "/api/v1/auth/register/individual",
		RegisterCompany:    "/api/v1/auth/register/company",
		ForgotPassword:     "/api/v1/auth/forgot-password",
		Me:                 "/api/v1/auth/me",
	}
}

// WithDefaults fills empty entries from DefaultEndpoints.
func (e Endpoints) WithDefaults() Endpoints {
	def := DefaultEndpoints()
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&e.Login, def.Login)
	fill(&e.Refresh, def.Refresh)
	fill(&e.Logout, def.Logout)
	fill(&e.RegisterIndividual, def.RegisterIndividual)
	fill(&e.RegisterCompany, def.RegisterCompany)
	fill(&e.ForgotPassword, def.ForgotPassword)
	fill(&e.Me, def.Me)
	return e
}
