// voipsim моделирует голосовой звонок с кодеками G.711 и G.726 и
// выводит статистику качества: потери, задержку, джиттер и пропускную
// способность по каждому абоненту.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
