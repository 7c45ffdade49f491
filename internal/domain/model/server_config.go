package model

// ServerConfig describes the server a tunnel connects to.
// For start it is passed through to the native layer unmodified;
// isReachable only reads Host and Port.
type ServerConfig struct {
	Host     string `json:"host" mapstructure:"host" yaml:"host"`
	Port     int    `json:"port" mapstructure:"port" yaml:"port"`
	Method   string `json:"method,omitempty" mapstructure:"method" yaml:"method,omitempty"`
	Password string `json:"password,omitempty" mapstructure:"password" yaml:"password,omitempty"`
	Prefix   string `json:"prefix,omitempty" mapstructure:"prefix" yaml:"prefix,omitempty"`
	Name     string `json:"name,omitempty" mapstructure:"name" yaml:"name,omitempty"`
}

// IsEmpty reports whether the configuration is absent
func (c *ServerConfig) IsEmpty() bool {
	return c == nil || *c == ServerConfig{}
}
