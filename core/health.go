package f

const (
	StatusUp       = "UP"
	StatusDown     = "DOWN"
	StatusDegraded = "DEGRADED"
)

type HealthCheckResponse struct {
	Whoami     string                          `json:"whoami"`
	Status     string                          `json:"status"`
	Components map[string]HealthCheckComponent `json:"components"`
}

type HealthCheckComponent struct {
	Status  string         `json:"status,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthCheck aggregates component checks. A failing critical check marks
// the whole service DOWN, a failing optional one only DEGRADED.
type HealthCheck struct {
	service    string
	status     string
	components map[string]HealthCheckComponent
}

func NewHealthCheck(service string) *HealthCheck {
	return &HealthCheck{
		service:    service,
		status:     StatusUp,
		components: make(map[string]HealthCheckComponent),
	}
}

func (b *HealthCheck) Add(name string, tester func() error) *HealthCheck {
	return b.add(name, true, nil, tester)
}

func (b *HealthCheck) AddOptional(name string, details map[string]any, tester func() error) *HealthCheck {
	return b.add(name, false, details, tester)
}

func (b *HealthCheck) add(name string, critical bool, details map[string]any, tester func() error) *HealthCheck {
	component := HealthCheckComponent{Status: StatusUp, Details: details}
	if err := tester(); err != nil {
		component.Message = err.Error()
		if critical {
			component.Status = StatusDown
			b.status = StatusDown
		} else {
			component.Status = StatusDegraded
			if b.status == StatusUp {
				b.status = StatusDegraded
			}
		}
	}
	b.components[name] = component
	return b
}

func (b *HealthCheck) Build() HealthCheckResponse {
	return HealthCheckResponse{
		Whoami:     b.service,
		Status:     b.status,
		Components: b.components,
	}
}
