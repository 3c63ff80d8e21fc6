/*
Package resilience provides the circuit breaker guarding outbound calls.

The gateway talks to two things it does not control: the agent runtime over
HTTP and the host shell through the message channel. Both go through a
Breaker so a dead dependency fails fast instead of stalling every page.

# Usage

	breaker := resilience.New("agent-runtime", resilience.Settings{
		Probes:   3,
		Cooldown: 30 * time.Second,
		Trip:     resilience.ConsecutiveFailures(5),
	})

	err := breaker.Do(func() error {
		return client.Post(ctx, body)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// degrade
	}

# States

	Closed --[Trip]--> Open --[Cooldown]--> Half-Open --[Probes successes]--> Closed
	                                            |
	                                        [failure]
	                                            v
	                                          Open

Each transition starts a new generation. Outcomes reported for calls admitted
in an earlier generation are dropped.
*/
package resilience
