package devserver

import "encoding/json"

// DemoScript is the canned experiment served by default: an explainer, a
// no-audio preload, two trial rounds authored as one server batch, a score
// screen and the final screen.
func DemoScript() []Batch {
	return []Batch{
		{
			json.RawMessage(`{
				"view": "EXPLAINER",
				"instruction": "Welcome to the demo experiment.",
				"button_label": "Start",
				"steps": [
					{"number": 1, "description": "Look at the two fragments"},
					{"number": 2, "description": "Answer the question"}
				]
			}`),
			json.RawMessage(`{
				"view": "PRELOAD",
				"instruction": "Get ready...",
				"duration": 3,
				"play_method": "NOAUDIO",
				"sections": [
					{"id": 1, "url": "/media/sections/1.mp3"},
					{"id": 2, "url": "/media/sections/2.mp3"}
				]
			}`),
			json.RawMessage(`{
				"view": "TRIAL_VIEW",
				"title": "Round 1",
				"playback": {
					"view": "BUTTON",
					"play_method": "NOAUDIO",
					"instruction": "Which fragment sounds higher?",
					"sections": [
						{"id": 1, "url": "/media/sections/1.mp3", "name": "First"},
						{"id": 2, "url": "/media/sections/2.mp3", "name": "Second"}
					]
				},
				"feedback_form": [
					{"key": "higher_sound", "question": "Which one?", "choices": ["First", "Second"]}
				],
				"config": {"response_time": 15},
				"next_round": [{
					"view": "TRIAL_VIEW",
					"title": "Round 1b",
					"playback": {
						"view": "BUTTON",
						"play_method": "NOAUDIO",
						"sections": [
							{"id": 1, "url": "/media/sections/1.mp3", "name": "First"},
							{"id": 2, "url": "/media/sections/2.mp3", "name": "Second"}
						]
					},
					"feedback_form": [
						{"key": "confidence", "question": "How sure are you?", "choices": ["Not sure", "Sure"]}
					],
					"config": {}
				}]
			}`),
		},
		{
			json.RawMessage(`{
				"view": "SCORE",
				"score": 10,
				"score_message": "Nice!",
				"total_score": 10,
				"texts": {"next": "Continue"}
			}`),
			json.RawMessage(`{
				"view": "FINAL",
				"final_text": "That was the demo. Thanks for playing!",
				"score": 10,
				"show_score": true
			}`),
		},
	}
}
