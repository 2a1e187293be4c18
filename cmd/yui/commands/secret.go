package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuibot/yui/pkg/yui/bot"
)

var secretKeys = []string{"openai_api_key", "gemini_api_key", "telegram_token"}

// newSecretCmd cria o comando `yui secret` para guardar credenciais no
// keyring do sistema em vez do YAML.
func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Gerencia credenciais no keyring do sistema",
		Long: `Guarda credenciais no keyring nativo do sistema (Secret Service,
Keychain ou Credential Manager), evitando texto plano no YAML.

Chaves conhecidas: ` + strings.Join(secretKeys, ", ") + `

Exemplos:
  yui secret set telegram_token
  yui secret delete openai_api_key`,
	}

	cmd.AddCommand(newSecretSetCmd(), newSecretDeleteCmd())
	return cmd
}

func knownSecretKey(key string) bool {
	for _, k := range secretKeys {
		if k == key {
			return true
		}
	}
	return false
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <chave>",
		Short: "Grava uma credencial no keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			key := args[0]
			if !knownSecretKey(key) {
				return fmt.Errorf("chave desconhecida %q (use uma de: %s)",
					key, strings.Join(secretKeys, ", "))
			}

			fmt.Printf("Valor para %s: ", key)
			reader := bufio.NewReader(os.Stdin)
			value, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading value: %w", err)
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return fmt.Errorf("valor vazio")
			}

			if err := bot.StoreKeyring(key, value); err != nil {
				return fmt.Errorf("storing secret: %w", err)
			}
			fmt.Printf("Credencial %s gravada no keyring.\n", key)
			return nil
		},
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chave>",
		Short: "Remove uma credencial do keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := bot.DeleteKeyring(args[0]); err != nil {
				return fmt.Errorf("deleting secret: %w", err)
			}
			fmt.Printf("Credencial %s removida.\n", args[0])
			return nil
		},
	}
}
