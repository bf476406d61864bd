// Package voice bridges a realtime voice agent into the detection
// pipeline over a WebRTC peer connection.
//
// A Session speaks the OpenAI Realtime protocol: audio flows both ways
// as opus RTP tracks, and JSON events travel over the "oai-events" data
// channel. Authentication uses a short-lived key minted by the backend
// (see TokenSource), so the OpenAI API key never reaches this process.
//
// # Usage
//
// Create a session, register tools, wire callbacks, then connect:
//
//	tokens := voice.NewBackendTokenSource("http://localhost:8000", apiKey)
//	session, err := voice.NewSession(tokens,
//	    voice.WithInstructions("You can see through the camera."),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session.RegisterTool(voice.Tool{
//	    Name:        "get_screenshot",
//	    Description: "Returns what the camera currently sees",
//	    Handler: func(args map[string]any) (string, error) {
//	        return describeFrame(), nil
//	    },
//	})
//
//	session.OnAudioOut(func(pcm []byte) {
//	    speaker.Write(pcm)
//	})
//	session.OnTranscript(func(role, text string, final bool) {
//	    fmt.Printf("[%s] %s\n", role, text)
//	})
//
//	if err := session.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	for pcm := range microphone {
//	    session.SendAudio(pcm)
//	}
//
// Audio in and out is 16-bit little-endian PCM at 48kHz mono; the
// session handles the opus transcode on both legs.
package voice
