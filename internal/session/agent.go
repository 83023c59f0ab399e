package session

import "sync"

// defaultUserAgents mirror common desktop Chrome builds.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// AgentRotor hands out user agents, rotating sequentially so restarted
// sessions do not share a fingerprint.
type AgentRotor struct {
	mu     sync.Mutex
	agents []string
	next   int
}

func NewAgentRotor() *AgentRotor {
	return &AgentRotor{agents: defaultUserAgents}
}

// Next returns the next user agent in rotation.
func (r *AgentRotor) Next() string {
	if len(r.agents) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	agent := r.agents[r.next]
	r.next = (r.next + 1) % len(r.agents)
	return agent
}
