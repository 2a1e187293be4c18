package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuibot/yui/pkg/yui/store"
)

// newScheduleCmd cria o comando `yui schedule` para gerenciar agendamentos
// direto no banco, sem passar pelo Telegram.
func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Gerencia mensagens agendadas",
		Long: `Gerencia os agendamentos da Yui direto no banco de dados.

Exemplos:
  yui schedule list
  yui schedule add 123456789 08:00 daily "frase motivacional"
  yui schedule remove <id>`,
	}

	cmd.AddCommand(
		newScheduleListCmd(),
		newScheduleAddCmd(),
		newScheduleRemoveCmd(),
	)

	return cmd
}

// openStore abre o banco apontado pela configuração.
func openStore(cmd *cobra.Command) (*store.SQLite, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", cfg.Database.Path, err)
	}
	return st, nil
}

func newScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lista todos os agendamentos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			entries, err := st.ListSchedules()
			if err != nil {
				return fmt.Errorf("listing schedules: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("Nenhum agendamento.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  chat=%s  %02d:%02d  %-6s  %s\n",
					e.ID, e.ChatID, e.Hour, e.Minute, string(e.Frequency), e.Message)
			}
			return nil
		},
	}
}

func newScheduleAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <chat-id> <HH:MM> <frequencia> <mensagem>",
		Short: "Adiciona um agendamento",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID := args[0]
			hh, mm, ok := strings.Cut(args[1], ":")
			if !ok {
				return fmt.Errorf("horário inválido %q: use o formato HH:MM", args[1])
			}
			hour, err := strconv.Atoi(hh)
			if err != nil {
				return fmt.Errorf("horário inválido %q: use o formato HH:MM", args[1])
			}
			minute, err := strconv.Atoi(mm)
			if err != nil {
				return fmt.Errorf("horário inválido %q: use o formato HH:MM", args[1])
			}
			frequency := store.Frequency(strings.ToLower(args[2]))
			message := strings.Join(args[3:], " ")

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			id, err := st.SaveSchedule(chatID, hour, minute, frequency, message)
			if err != nil {
				return err
			}
			fmt.Printf("Agendamento criado: %s\n", id)
			return nil
		},
	}
}

func newScheduleRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove um agendamento",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteSchedule(args[0]); err != nil {
				return fmt.Errorf("removing schedule: %w", err)
			}
			fmt.Printf("Agendamento %q removido.\n", args[0])
			return nil
		},
	}
}
