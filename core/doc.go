// Package realtime maintains live speech sessions against the streaming
// speech service: one persistent bidirectional connection per session,
// audio flowing in, ordered transcript and audio events flowing out.
//
// A [Client] opens sessions in one of two flavors. [Client.ConnectTranscription]
// yields text only; [Client.ConnectSpeechToSpeech] additionally returns
// synthesized audio. Both hand back a [Session] whose send side
// ([Session.SendAudio], [Session.StreamFrom], [Session.EndAudio]) and event
// side ([Session.Events]) operate concurrently and independently.
//
// Sessions terminate exactly once, either cleanly (Closed) or with a
// terminal error (Failed, inspectable via [Session.Err]). [Session.Close]
// is idempotent and joins both internal loops before returning.
package realtime
