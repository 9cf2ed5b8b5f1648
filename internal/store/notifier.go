// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Courier License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package store

import (
	"context"
	"log/slog"
)

// NotificationBuffer é a capacidade do canal entre o executor e o sink de
// persistência. Com o buffer cheio, as sessões bloqueiam no envio — a
// persistência aplica backpressure em vez de perder notificações.
const NotificationBuffer = 8

// RunNotifier consome notificações do canal e as insere no banco até o
// context ser cancelado ou o canal fechar. Falhas de insert são logadas e o
// loop continua; uma mensagem já foi confirmada ao client quando chega aqui.
func RunNotifier(ctx context.Context, st *Store, ch <-chan ExecNotification, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := st.Insert(ctx, n); err != nil {
				logger.Error("persisting message notification", "error", err, "nickname", n.Nickname)
			}
		}
	}
}
