// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package client

import "strings"

// CommandKind identifica o tipo de comando digitado.
type CommandKind int

// Tipos de comando da linha de entrada.
const (
	// CommandText envia a linha como mensagem de texto.
	CommandText CommandKind = iota
	// CommandFile envia o arquivo do path como upload streamed.
	CommandFile
	// CommandImage envia a imagem .png do path como upload streamed.
	CommandImage
	// CommandNick anuncia um novo apelido.
	CommandNick
	// CommandQuit encerra o client.
	CommandQuit
)

// Command é um comando parseado de uma linha do stdin.
type Command struct {
	Kind CommandKind
	// Arg é o path (.file/.image), o apelido (.nick) ou o texto da mensagem.
	Arg string
}

// ParseCommand interpreta uma linha de entrada. Linhas que não casam com
// nenhum comando são mensagens de texto — inclusive ".file" sem argumento.
func ParseCommand(line string) Command {
	if line == ".quit" {
		return Command{Kind: CommandQuit}
	}
	if path, ok := strings.CutPrefix(line, ".file "); ok {
		return Command{Kind: CommandFile, Arg: path}
	}
	if path, ok := strings.CutPrefix(line, ".image "); ok {
		return Command{Kind: CommandImage, Arg: path}
	}
	if nick, ok := strings.CutPrefix(line, ".nick "); ok {
		return Command{Kind: CommandNick, Arg: nick}
	}
	return Command{Kind: CommandText, Arg: line}
}
