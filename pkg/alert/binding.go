package alert

// Alarm is the audible side of an alert.
type Alarm interface {
	StartLoop()
	Stop()
}

// BindAlarm joins a channel to an alarm: the alarm loops exactly while the
// live envelope has Alarm set. Any clear, expiry or replacement by a
// non-alarm envelope stops it. The returned function detaches the binding
// and stops the alarm.
func BindAlarm(ch *Channel, alarm Alarm) (unbind func()) {
	unsubscribe := ch.Subscribe(func(env Envelope, live bool) {
		if live && env.Alarm {
			alarm.StartLoop()
			return
		}
		alarm.Stop()
	})

	// An alarm envelope may already be live.
	if env, ok := ch.Current(); ok && env.Alarm {
		alarm.StartLoop()
	}

	return func() {
		unsubscribe()
		alarm.Stop()
	}
}
