// Package commands implementa os comandos CLI da Yui usando cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd cria o comando raiz do CLI com todos os subcomandos registrados.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yui",
		Short: "Yui - companheira de conversa no Telegram",
		Long: `Yui é uma bot de companhia para o Telegram: conversa com persona
configurável por chat, manda mensagens agendadas e, se você deixar,
aparece de surpresa de vez em quando.

Exemplos:
  yui serve
  yui serve --config ./yui.yaml
  yui schedule list
  yui secret set telegram_token`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newScheduleCmd(),
		newSecretCmd(),
	)

	// Flags globais.
	rootCmd.PersistentFlags().StringP("config", "c", "", "caminho para o arquivo de configuração")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "habilita logs detalhados")

	return rootCmd
}
