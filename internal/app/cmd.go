package app

import (
	"fmt"
	"io"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	CommandServe       Command = "serve"
	CommandWorker      Command = "worker"
	CommandMigrate     Command = "migrate"
	CommandHealthcheck Command = "healthcheck"
	CommandHelp        Command = "help"
)

// commands はサブコマンドの一覧。Usageの表示順を兼ねる。
var commands = []struct {
	cmd     Command
	aliases []string
	summary string
}{
	{CommandServe, nil, "Webサーバーを起動する（デフォルト）"},
	{CommandWorker, nil, "期限切れセッションを定期削除し、/health と /metrics を公開する"},
	{CommandMigrate, nil, "未適用のマイグレーションを適用する"},
	{CommandHealthcheck, nil, "localhostの /health を確認する（distrolessイメージのHEALTHCHECK用）"},
	{CommandHelp, []string{"-h", "--help"}, "この一覧を表示する"},
}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	name := args[0]
	for _, c := range commands {
		if string(c.cmd) == name {
			return c.cmd
		}
		for _, alias := range c.aliases {
			if alias == name {
				return c.cmd
			}
		}
	}
	return CommandServe
}

// writeUsage はサブコマンドの一覧を出力する。
func writeUsage(w io.Writer) error {
	var b strings.Builder
	b.WriteString("usage: voxa [command]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-12s %s\n", c.cmd, c.summary)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
