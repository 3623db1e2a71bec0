package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/arzzra/voip_sim/pkg/codec"
	"github.com/arzzra/voip_sim/pkg/media_sdp"
	"github.com/spf13/cobra"
)

func (a *app) sdpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sdp",
		Short: "Сформировать SDP offer или ответ на offer",
		Example: `  voipsim sdp --codec g726 --rate 24
  voipsim sdp --answer offer.sdp`,
		RunE: a.runSDP,
	}

	f := cmd.Flags()
	f.String("codec", "g711", "кодек offer: g711, g726")
	f.Int("rate", 32, "скорость G.726, кбит/с")
	f.String("address", "127.0.0.1", "адрес приема RTP")
	f.Int("port", 5004, "порт приема RTP")
	f.String("answer", "", "файл с SDP offer, на который нужно ответить")

	return cmd
}

func (a *app) runSDP(cmd *cobra.Command, args []string) error {
	v := a.v

	kind, err := codec.ParseKind(v.GetString("codec"))
	if err != nil {
		return err
	}

	cfg := media_sdp.DefaultOfferConfig()
	cfg.Codec = kind
	cfg.Rate = codec.Rate(v.GetInt("rate"))
	cfg.Address = v.GetString("address")
	cfg.Port = v.GetInt("port")

	var out []byte
	if path := v.GetString("answer"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		offer, err := media_sdp.Unmarshal(data)
		if err != nil {
			return err
		}
		answer, sel, err := media_sdp.BuildAnswer(offer, cfg)
		if err != nil {
			return err
		}
		a.logger.Info("кодек согласован",
			slog.String("codec", sel.Kind.String()),
			slog.Int("rate", int(sel.Rate)),
			slog.String("remote", sel.RemoteAddr()))
		if out, err = media_sdp.Marshal(answer); err != nil {
			return err
		}
	} else {
		offer, err := media_sdp.BuildOffer(cfg)
		if err != nil {
			return err
		}
		if out, err = media_sdp.Marshal(offer); err != nil {
			return err
		}
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
	return err
}
