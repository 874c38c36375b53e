// Package voicecmder provides the voice command, which sends a recorded
// question to the voice endpoint.
package voicecmder

import (
	"fmt"
	"mime"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/counsel/cmd/counsel/cmdutil"
	"github.com/papercomputeco/counsel/pkg/cliui"
	"github.com/papercomputeco/counsel/pkg/config"
	"github.com/papercomputeco/counsel/pkg/voice"
)

type voiceCommander struct {
	client     cmdutil.ClientFlags
	voiceURL   string
	sampleRate int
	channels   int
	out        string
	saveWav    string
}

const voiceLongDesc string = `Send a recorded question to the voice endpoint.

The input file holds raw interleaved little-endian float32 samples, as
produced by "ffmpeg -f f32le". It is encoded as 16-bit PCM WAV and uploaded
together with the answer language. The spoken answer is written to --out.

Examples:
  ffmpeg -i question.m4a -f f32le -ac 1 -ar 16000 question.pcm
  counsel voice question.pcm --out answer.mp3
  counsel voice question.pcm --rate 48000 --channels 2 --save-wav question.wav`

const voiceShortDesc string = "Ask a question by voice"

func NewVoiceCmd() *cobra.Command {
	cmder := &voiceCommander{}

	cmd := &cobra.Command{
		Use:   "voice <pcm-file>",
		Short: voiceShortDesc,
		Long:  voiceLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmdutil.AddClientFlags(cmd, &cmder.client)
	config.AddStringFlag(cmd, cmdutil.Flags, config.FlagVoiceEndpoint, &cmder.voiceURL)
	cmd.Flags().IntVar(&cmder.sampleRate, "rate", 16000, "Sample rate of the input in Hz")
	cmd.Flags().IntVar(&cmder.channels, "channels", 1, "Number of interleaved channels in the input")
	cmd.Flags().StringVarP(&cmder.out, "out", "o", "", "Write the spoken answer to this file (default answer.<ext>)")
	cmd.Flags().StringVar(&cmder.saveWav, "save-wav", "", "Also write the encoded WAV upload to this file")

	return cmd
}

func (c *voiceCommander) run(cmd *cobra.Command, input string) error {
	keys := append([]string{config.FlagVoiceEndpoint}, cmdutil.ClientFlagKeys...)
	env, err := cmdutil.Load(cmd, keys...)
	if err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	pcm, err := voice.ReadPCM(f, c.sampleRate, c.channels)
	if err != nil {
		return err
	}

	wav, err := voice.EncodePCMToWav(pcm)
	if err != nil {
		return fmt.Errorf("encoding recording: %w", err)
	}
	env.Logger.Debug("encoded recording",
		"frames", pcm.Frames(),
		"channels", len(pcm.Channels),
		"wav_bytes", len(wav),
	)

	if c.saveWav != "" {
		if err := os.WriteFile(c.saveWav, wav, 0o644); err != nil {
			return fmt.Errorf("writing wav: %w", err)
		}
	}

	client, err := env.VoiceClient()
	if err != nil {
		return err
	}

	var reply *voice.Reply
	err = cliui.Step(cmd.ErrOrStderr(), "Sending recording", func() error {
		reply, err = client.Query(cmd.Context(), wav, env.Language())
		return err
	})
	if err != nil {
		return err
	}

	out := c.out
	if out == "" {
		out = "answer" + audioExtension(reply.ContentType)
	}
	if err := os.WriteFile(out, reply.Audio, 0o644); err != nil {
		return fmt.Errorf("writing answer: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s Answer written to %s %s\n",
		cliui.SuccessMark,
		out,
		cliui.DimStyle.Render(fmt.Sprintf("(%s, %d bytes)", reply.ContentType, len(reply.Audio))),
	)
	return nil
}

// audioExtension picks a file extension for an audio content type.
func audioExtension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".audio"
	}

	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	}

	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	return ".audio"
}
