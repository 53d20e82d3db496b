package main

import (
	"context"
	"flag"
	"udtnet"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var config *udtnet.Config
var listenAddress string
var connectAddress string
var message string

func init() {
	configFilePath := flag.String("c", "./cmd/config.toml", "path to configuration file.")
	flag.StringVar(&listenAddress, "listen", "", "run an echo server on this address.")
	flag.StringVar(&connectAddress, "connect", "", "send a datagram to an echo server on this address.")
	flag.StringVar(&message, "m", "ping", "message to send in client mode.")
	flag.Parse()
	config = udtnet.LoadConfig(*configFilePath)
	initLog(config)
}

func initLog(config *udtnet.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(config.Global.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func main() {
	udtnet.SetRlimit()
	poller, err := udtnet.NewPoller(config.PollerConfig())
	if err != nil {
		log.Fatal().Msgf("can't init poller: %+v", err)
	}
	go poller.Start()
	defer poller.Stop()

	resolver, err := udtnet.NewEndpointResolver(config.ResolverConfig())
	if err != nil {
		log.Fatal().Msgf("can't init endpoint resolver: %+v", err)
	}

	if listenAddress != "" {
		runServer(poller, resolver)
	} else if connectAddress != "" {
		runClient(poller, resolver)
	} else {
		log.Fatal().Msg("either -listen or -connect is required")
	}
}

func runServer(poller *udtnet.Poller, resolver *udtnet.EndpointResolver) {
	local, err := resolver.Resolve(listenAddress)
	if err != nil {
		log.Fatal().Msgf("can't resolve listen address: %+v", err)
	}
	transport, err := udtnet.OpenUDPTransport(local, udtnet.Endpoint{})
	if err != nil {
		log.Fatal().Msgf("can't open transport: %+v", err)
	}
	ctx := context.Background()
	holder := udtnet.NewMapSocketHolder(ctx)
	socket := udtnet.NewSocket(transport, poller)
	holder.AddSocket(socket)
	defer holder.RemoveSocket(socket)
	defer socket.Close()
	log.Info().Msgf("echo server listening on %s", local)

	buffer := make([]byte, 1<<16)
	for {
		read, err := socket.ReadSome(ctx, buffer)
		if err != nil {
			log.Error().Msgf("got error while reading data from socket: %+v", err)
			return
		}
		if read > 0 {
			_, err = socket.WriteSome(ctx, buffer[:read])
			if err != nil {
				log.Error().Msgf("got error while writing data to socket: %+v", err)
				return
			}
		}
	}
}

func runClient(poller *udtnet.Poller, resolver *udtnet.EndpointResolver) {
	remote, err := resolver.Resolve(connectAddress)
	if err != nil {
		log.Fatal().Msgf("can't resolve connect address: %+v", err)
	}
	transport, err := udtnet.OpenUDPTransport(udtnet.Endpoint{}, remote)
	if err != nil {
		log.Fatal().Msgf("can't open transport: %+v", err)
	}
	ctx := context.Background()
	socket := udtnet.NewSocket(transport, poller)
	defer socket.Close()

	_, err = socket.WriteSome(ctx, []byte(message))
	if err != nil {
		log.Fatal().Msgf("got error while writing data to socket: %+v", err)
	}
	buffer := make([]byte, 1<<16)
	read, err := socket.ReadSome(ctx, buffer)
	if err != nil {
		log.Fatal().Msgf("got error while reading data from socket: %+v", err)
	}
	log.Info().Msgf("reply from %s: %s", remote, buffer[:read])
}
